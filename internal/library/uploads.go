package library

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"penx/internal/apperr"
)

// ProfilePicturesURL is the public prefix of uploaded profile pictures.
const ProfilePicturesURL = "/uploads/profile-pictures"

var errTooLarge = errors.New("upload exceeds size limit")

func (s *Service) tooLarge() error {
	return apperr.New(
		fmt.Sprintf("File too large (limit %s)", humanize.IBytes(uint64(s.opts.MaxUploadBytes))),
		apperr.BadRequest(),
		apperr.WithCause(errTooLarge),
	)
}

func (s *Service) checkSize(up *Upload) error {
	if s.opts.MaxUploadBytes > 0 && up.Size > s.opts.MaxUploadBytes {
		return s.tooLarge()
	}
	return nil
}

// writeUpload copies an upload to path, which must not exist yet. The copy
// stops one byte past the size limit so a wrong Size cannot bypass it.
func (s *Service) writeUpload(up *Upload, path string) error {
	if err := s.checkSize(up); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return apperr.Internal("Failed to store file", err)
	}

	src := up.Content
	if s.opts.MaxUploadBytes > 0 {
		src = io.LimitReader(src, s.opts.MaxUploadBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.opts.MaxUploadBytes > 0 && n > s.opts.MaxUploadBytes {
		err = errTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, errTooLarge) {
			return s.tooLarge()
		}
		return apperr.Internal("Failed to store file", err)
	}
	return nil
}

func uploadExt(name, fallback string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if ext == "" || len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		return fallback
	}
	return ext
}

// Profile picture file names start with a tag derived from the owning
// account, so one account can never remove another account's upload.
func ownerTag(key string) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
	return hex.EncodeToString(id[:6])
}

func readerOwner(email string) string {
	return ownerTag("reader:" + strings.ToLower(strings.TrimSpace(email)))
}

func authorOwner(id int64) string {
	return ownerTag("author:" + strconv.FormatInt(id, 10))
}

// ownsPicture reports whether publicPath is a picture uploaded for owner.
func ownsPicture(owner, publicPath string) bool {
	name, ok := strings.CutPrefix(publicPath, ProfilePicturesURL+"/")
	return ok && !strings.ContainsAny(name, `/\`) && strings.HasPrefix(name, owner+"-")
}

// saveProfilePicture stores a picture for owner under a fresh name and
// returns its public path.
func (s *Service) saveProfilePicture(owner string, up *Upload) (string, error) {
	if err := os.MkdirAll(s.opts.ProfilePicturesDir, 0o755); err != nil {
		return "", apperr.Internal("Failed to store file", err)
	}
	name := fmt.Sprintf("%s-%d-%s%s", owner, time.Now().UnixMilli(), uuid.NewString()[:8], uploadExt(up.Name, ".png"))
	if err := s.writeUpload(up, filepath.Join(s.opts.ProfilePicturesDir, name)); err != nil {
		return "", err
	}
	return ProfilePicturesURL + "/" + name, nil
}

// removeProfilePicture deletes a picture previously uploaded for owner.
// Anything else, including other accounts' uploads, is left alone.
func (s *Service) removeProfilePicture(owner, publicPath string) {
	if !ownsPicture(owner, publicPath) {
		return
	}
	name := strings.TrimPrefix(publicPath, ProfilePicturesURL+"/")
	err := os.Remove(filepath.Join(s.opts.ProfilePicturesDir, name))
	if err != nil && !os.IsNotExist(err) {
		s.log.WithError(err).WithField("path", publicPath).Warn("failed to remove old profile picture")
	}
}
