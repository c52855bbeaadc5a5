package domain

// OutputStream names the subprocess stream a line was read from.
type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

// FetchRequest asks the fetcher to find and download one track.
type FetchRequest struct {
	Query          string
	OutputTemplate string
}

// TrackMeta is the set of tags embedded by the transcoder.
type TrackMeta struct {
	Title  string
	Artist string
	Album  string
	Track  uint32
}

// RemuxRequest asks the transcoder to copy Source into Output with Meta and,
// when Cover is non-empty, the image at Cover as attached art.
type RemuxRequest struct {
	Source string
	Cover  string
	Output string
	Meta   TrackMeta
}
