// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort        = "8080"
	DefaultDBPath      = "musicdl.db"
	DefaultCatalogURL  = "https://api.deezer.com"
	MockCatalog        = "mock"
	DefaultConcurrency = 3
	MaxConcurrency     = 16
	DefaultAudioFormat = "mp3"
	DefaultTagger      = TaggerFFmpeg
	DefaultYTDLPBin    = "yt-dlp"
	DefaultFFmpegBin   = "ffmpeg"
	DataDirName        = "music-downloader"
	DefaultHTTPTimeout = 30 * time.Second
	ImageHTTPTimeout   = 30 * time.Second
	DefaultRetryCount  = 3
	DefaultRetryBase   = 1 * time.Second
	CatalogRetryBase   = 2 * time.Second
	DefaultCacheTTL    = 7 * 24 * time.Hour
	CatalogMinInterval = 100 * time.Millisecond
	CatalogSearchLimit = 25
	CatalogListLimit   = 100
)

// Taggers
const (
	TaggerFFmpeg = "ffmpeg"
	TaggerNative = "native"
)

// Audio formats
const (
	FormatMP3  = "mp3"
	FormatFLAC = "flac"
)

// Progress checkpoints
const (
	ProgressStart          = 0.0
	PostProcessCheckpoint  = 90.0
	ProgressComplete       = 100.0
	SnapshotSubscriberSize = 1
	EventBufferSize        = 64
)

// yt-dlp output
const (
	YTDLPSearchPrefix    = "ytsearch1:"
	YTDLPProgressMarker  = "[download]"
	YTDLPOutputTemplate  = "%(title)s.%(ext)s"
	YTDLPPrintAfterMove  = "after_move:filepath"
	MaxFetchLogBytes     = 64 * 1024
	MaxScannerTokenBytes = 1024 * 1024
)

// Cover art
const (
	CoverTempPrefix   = "mdl_cover_"
	CoverTempExt      = ".jpg"
	CoverTitle        = "Album cover"
	CoverComment      = "Cover (front)"
	CoverCacheKeyBase = "cover:"
)

// Placement
const (
	DefaultAlbumDirTemplate = "{{.Artist}} - {{.Album}}"
	DefaultFileTemplate     = "{{.Artist}} - {{.Title}}"
	TaggedTempSuffix        = ".tmp"
)

// Session log
const (
	LogHeaderFormat     = "=== %s ==="
	LogFailHeaderFormat = "=== fail: %s ==="
	MaxHistoryItems     = 50
)

// HTTP API
const (
	MaxRequestBodyBytes = 1 << 20
	ShutdownTimeout     = 10 * time.Second
	ReadHeaderTimeout   = 10 * time.Second
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Characters to sanitize from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"
