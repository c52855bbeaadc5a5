// Package tagging writes track metadata and cover art in-process, without an
// external binary.
package tagging

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/domain"
	"github.com/cesargomez89/musicdl/internal/storage"
)

// Tagger copies the source file to the output path and writes tags into the
// copy. It supports MP3 and FLAC.
type Tagger struct{}

func NewTagger() *Tagger {
	return &Tagger{}
}

func (t *Tagger) Remux(ctx context.Context, req domain.RemuxRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var cover []byte
	if req.Cover != "" {
		data, err := os.ReadFile(req.Cover)
		if err != nil {
			return fmt.Errorf("failed to read cover: %w", err)
		}
		cover = data
	}

	if err := storage.CopyFile(req.Source, req.Output); err != nil {
		return fmt.Errorf("failed to copy source: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(req.Output))
	switch ext {
	case ".mp3":
		return tagMP3(req.Output, req.Meta, cover)
	case ".flac":
		return tagFLAC(req.Output, req.Meta, cover)
	default:
		return fmt.Errorf("unsupported file format: %s", ext)
	}
}

func tagMP3(filePath string, meta domain.TrackMeta, cover []byte) error {
	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(3)
	tag.SetTitle(meta.Title)
	tag.SetArtist(meta.Artist)
	tag.SetAlbum(meta.Album)
	if meta.Track > 0 {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(), strconv.FormatUint(uint64(meta.Track), 10))
	}

	if len(cover) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    imageMIME(cover),
			PictureType: id3v2.PTFrontCover,
			Description: constants.CoverTitle,
			Picture:     cover,
		})
	}

	return tag.Save()
}

func tagFLAC(filePath string, meta domain.TrackMeta, cover []byte) error {
	f, err := flac.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to open FLAC file: %w", err)
	}

	kept := f.Meta[:0]
	for _, block := range f.Meta {
		if block.Type == flac.VorbisComment {
			continue
		}
		if block.Type == flac.Picture && len(cover) > 0 {
			// replaced below
			continue
		}
		kept = append(kept, block)
	}
	f.Meta = kept

	comment, err := newVorbisComment(meta)
	if err != nil {
		return err
	}
	commentBlock := comment.Marshal()
	f.Meta = append(f.Meta, &commentBlock)

	// An undecodable cover is skipped rather than failing the tag write.
	if len(cover) > 0 {
		if pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, constants.CoverTitle, cover, imageMIME(cover)); err == nil {
			picBlock := pic.Marshal()
			f.Meta = append(f.Meta, &picBlock)
		}
	}

	if err := f.Save(filePath); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}
	return nil
}

func newVorbisComment(meta domain.TrackMeta) (*flacvorbis.MetaDataBlockVorbisComment, error) {
	vc := flacvorbis.New()
	fields := [][2]string{
		{flacvorbis.FIELD_TITLE, meta.Title},
		{flacvorbis.FIELD_ARTIST, meta.Artist},
		{flacvorbis.FIELD_ALBUM, meta.Album},
	}
	if meta.Track > 0 {
		fields = append(fields, [2]string{flacvorbis.FIELD_TRACKNUMBER, strconv.FormatUint(uint64(meta.Track), 10)})
	}
	for _, field := range fields {
		if field[1] == "" {
			continue
		}
		if err := vc.Add(field[0], field[1]); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", field[0], err)
		}
	}
	return vc, nil
}

func imageMIME(data []byte) string {
	mime := http.DetectContentType(data)
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if !strings.HasPrefix(mime, "image/") {
		return "image/jpeg"
	}
	return mime
}
