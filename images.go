package studyblog

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 1200
	jpegQuality   = 80
	maxUploadSize = 5 << 20 // 5MB
	uploadsSubdir = "uploads"
)

// processImage decodes an image from src, resizes it to maxImageWidth if
// wider, and re-encodes it as JPEG.
func processImage(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// handleImageUpload accepts a multipart image, validates type and size before
// touching the payload, and stores it under the uploader's own directory.
// Responds with the public URL to reference from a post.
func (a *App) handleImageUpload(c echo.Context) error {
	userID := currentUserID(c)

	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no image file provided")
	}
	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		return echo.NewHTTPError(http.StatusBadRequest, "file must be an image")
	}
	if file.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusBadRequest, "file too large (max 5MB)")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := processImage(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image")
	}

	// Timestamp plus random suffix keeps names unique per uploader.
	filename := fmt.Sprintf("%d-%s.jpg", time.Now().UnixMilli(), uuid.NewString()[:8])
	dir := filepath.Join(a.Config.StaticDir, uploadsSubdir, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	url := BuildURL(a.Config.SiteURL, "public", uploadsSubdir, userID, filename)
	return c.JSON(http.StatusCreated, map[string]string{"url": url})
}
