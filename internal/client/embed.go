package client

import (
	"errors"
	"net/url"
	"strings"

	"github.com/tukey-analytics/tukey/internal/types"
)

// ErrInvalidEmbedURL is returned when neither the token nor the configuration supplies a dashboard URL.
// ErrorMessage translates it for display.
var ErrInvalidEmbedURL = errors.New("invalid embed url received from server")

// EmbedURL builds the URL handed to the dashboard widget. The base is the token's embed_url, or
// fallbackBase (the configured dashboard server) when the token has none; the token is added as
// the embed and token query parameters.
func EmbedURL(tok *types.EmbedToken, fallbackBase string) (string, error) {
	if tok == nil {
		return "", ErrInvalidEmbedURL
	}

	base := tok.EmbedURL
	if base == "" {
		base = fallbackBase
	}

	switch {
	case base != "" && tok.Token != "":
		u, err := url.Parse(base)
		if err != nil || !u.IsAbs() {
			sep := "?"
			if strings.Contains(base, "?") {
				sep = "&"
			}
			return base + sep + "embed=y&token=" + url.QueryEscape(tok.Token), nil
		}
		q := u.Query()
		q.Set("embed", "y")
		q.Set("token", tok.Token)
		u.RawQuery = q.Encode()
		return u.String(), nil
	case tok.EmbedURL != "":
		return tok.EmbedURL, nil
	default:
		return "", ErrInvalidEmbedURL
	}
}
