package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/adcanvas/adapt-agent/internal/catalog"
)

// uploadAssetHandler accepts a multipart upload ("file" part), stores it
// under the upload dir with a fresh ID prefix, and registers it as an asset.
// Oversized requests fail with 413 before the file is written.
func uploadAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				WriteError(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("upload exceeds %d bytes", maxErr.Limit), "TOO_LARGE")
				return
			}
			WriteError(w, http.StatusBadRequest, "multipart 'file' part is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		filename := filepath.Base(header.Filename)
		if !catalog.IsVideoFile(filename) {
			WriteError(w, http.StatusUnsupportedMediaType,
				"unsupported file type: "+filepath.Ext(filename), "UNSUPPORTED_TYPE")
			return
		}
		if ct := header.Header.Get("Content-Type"); ct != "" &&
			!strings.HasPrefix(ct, "video/") && ct != "application/octet-stream" {
			WriteError(w, http.StatusUnsupportedMediaType,
				"unsupported content type: "+ct, "UNSUPPORTED_TYPE")
			return
		}

		dstPath, err := saveUpload(cfg.UploadDir, filename, file)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				WriteError(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("upload exceeds %d bytes", maxErr.Limit), "TOO_LARGE")
				return
			}
			cfg.Logger.Error("upload write failed", "filename", filename, "error", err)
			WriteError(w, http.StatusInternalServerError, "could not store upload", "INTERNAL_ERROR")
			return
		}

		asset, err := cfg.Service.RegisterAsset(r.Context(), dstPath)
		if err != nil {
			os.Remove(dstPath)
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "UNPROCESSABLE")
			return
		}

		WriteJSON(w, http.StatusCreated, AssetToResponse(asset))
	}
}

// saveUpload writes the part to <uploadDir>/<id>_<sanitized name>. The ID
// prefix keeps repeated uploads of the same file from clobbering each other.
func saveUpload(uploadDir, filename string, src io.Reader) (string, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", err
	}

	name := catalog.NewID()[:8] + "_" + catalog.SanitizeName(filename, 120)
	dstPath := filepath.Join(uploadDir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return "", err
	}
	return dstPath, nil
}
