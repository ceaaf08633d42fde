package services

import (
	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/profiles"
	"github.com/desertthunder/ytrelay/internal/shared"
)

// Resolve picks one media URL from info.
//
// Preference order: the top-level url, the format whose format_id equals info's format_id,
// then the last format. The last-format fallback assumes formats are listed worst to best.
// Fails with [shared.ErrResolution] when no rule yields a URL. info is not modified.
func Resolve(info *models.Info) (string, error) {
	u, _, err := resolve(info)
	return u, err
}

// ResolveTarget resolves info into a [models.StreamTarget] carrying the profile's headers
// overlaid with any headers the extractor reported for the chosen variant.
func ResolveTarget(info *models.Info, p profiles.OptionProfile, contentType string) (models.StreamTarget, error) {
	u, headers, err := resolve(info)
	if err != nil {
		return models.StreamTarget{}, err
	}

	target := models.StreamTarget{URL: u, ContentType: contentType}
	return target.WithHeaders(p.Headers(), headers), nil
}

func resolve(info *models.Info) (string, map[string]string, error) {
	if info == nil {
		return "", nil, shared.ErrResolution
	}

	if info.URL != "" {
		return info.URL, info.HTTPHeaders, nil
	}

	if info.FormatID != "" {
		for _, f := range info.Formats {
			if f.FormatID == info.FormatID && f.URL != "" {
				return f.URL, f.HTTPHeaders, nil
			}
		}
	}

	if n := len(info.Formats); n > 0 {
		if last := info.Formats[n-1]; last.URL != "" {
			return last.URL, last.HTTPHeaders, nil
		}
	}

	return "", nil, shared.ErrResolution
}
