package cppdbc

import (
	"strings"

	cerrors "github.com/cppdbc/cppdbc-go/errors"
)

// urlPrefix is the mandatory prefix every connection URL carries before its
// scheme, e.g. "cpp_dbc:postgresql://host:5432/mydb".
const urlPrefix = "cpp_dbc:"

// ParsedURL is the decomposed form of a connection URL.
type ParsedURL struct {
	Scheme    string
	Authority string
	Raw       string
}

// ParseURL splits a "cpp_dbc:<scheme>://<authority>" URL into its scheme and
// authority. It returns CodeInvalidUrl if the prefix or "://" separator is
// missing.
func ParseURL(url string) (ParsedURL, error) {
	if !strings.HasPrefix(url, urlPrefix) {
		return ParsedURL{}, cerrors.Newf(cerrors.CodeInvalidUrl,
			"url %q is missing the %q prefix", url, urlPrefix)
	}

	rest := strings.TrimPrefix(url, urlPrefix)
	sepIdx := strings.Index(rest, "://")
	if sepIdx < 0 {
		return ParsedURL{}, cerrors.Newf(cerrors.CodeInvalidUrl,
			"url %q is missing the scheme separator \"://\"", url)
	}

	scheme := rest[:sepIdx]
	authority := rest[sepIdx+3:]
	if scheme == "" {
		return ParsedURL{}, cerrors.Newf(cerrors.CodeInvalidUrl, "url %q has an empty scheme", url)
	}

	return ParsedURL{Scheme: scheme, Authority: authority, Raw: url}, nil
}
