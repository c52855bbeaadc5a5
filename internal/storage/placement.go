package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/domain"
)

var coverSeq atomic.Uint64

// Layout decides where finished files go. The zero value uses the default
// templates.
type Layout struct {
	AlbumDirTemplate string
	FileTemplate     string
}

// DefaultLayout places album members under "<artist> - <album>" and names
// files "<artist> - <title>".
var DefaultLayout = Layout{
	AlbumDirTemplate: constants.DefaultAlbumDirTemplate,
	FileTemplate:     constants.DefaultFileTemplate,
}

func (l Layout) albumDirTemplate() string {
	if l.AlbumDirTemplate == "" {
		return constants.DefaultAlbumDirTemplate
	}
	return l.AlbumDirTemplate
}

func (l Layout) fileTemplate() string {
	if l.FileTemplate == "" {
		return constants.DefaultFileTemplate
	}
	return l.FileTemplate
}

// TrackDir returns the directory an item is placed in. Album members with a
// known album and artist get a subdirectory of base, anything else goes to
// base itself.
func (l Layout) TrackDir(base string, item domain.Item) (string, error) {
	if !item.AlbumMember || item.Album == "" || item.Artist == "" {
		return base, nil
	}
	data := NewPathTemplateData(item.Artist, item.Album, item.Title)
	sub, err := BuildPath(l.albumDirTemplate(), data)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, sub), nil
}

// TrackPath returns the final path of an item with extension ext.
func (l Layout) TrackPath(base string, item domain.Item, ext string) (string, error) {
	dir, err := l.TrackDir(base, item)
	if err != nil {
		return "", err
	}
	data := NewPathTemplateData(item.Artist, item.Album, item.Title)
	name, err := BuildPath(l.fileTemplate(), data)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+ParseExtension(ext)), nil
}

// TaggedTempPath returns the sibling "<name>.tmp<ext>" used while tagging.
func TaggedTempPath(src string) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + constants.TaggedTempSuffix + ext
}

// TempCoverPath returns a unique path in the system temp directory for a
// downloaded cover image.
func TempCoverPath() string {
	name := fmt.Sprintf("%s%d_%d%s", constants.CoverTempPrefix, os.Getpid(), coverSeq.Add(1), constants.CoverTempExt)
	return filepath.Join(os.TempDir(), name)
}

// ParseExtension ensures ext starts with a dot.
func ParseExtension(ext string) string {
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}
