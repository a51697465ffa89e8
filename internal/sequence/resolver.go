package sequence

import "strings"

const filePrefix = "file://"

// Resolve classifies uri into a fetch Strategy and returns the reference to
// fetch with it: the raw URL for remote frames, the path with the file://
// prefix stripped for local files and the raw name otherwise. Strings that
// are neither URLs nor file paths fall through to NamedResource.
func Resolve(uri string) (Strategy, string) {
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return Remote, uri
	case strings.HasPrefix(uri, filePrefix):
		return LocalFile, uri[len(filePrefix):]
	default:
		return NamedResource, uri
	}
}
