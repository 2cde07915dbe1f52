package rest

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcenter/internal/domain"
)

// multipartOverhead covers form fields and part headers on top of the file
// payload when the request body is capped.
const multipartOverhead = 1 << 20

// parseMultipart caps the request body at maxFiles files of the configured
// size and parses the form. It writes the error response itself.
func (h *Handler) parseMultipart(c *gin.Context, maxFiles int) (*multipart.Form, bool) {
	maxFileSize := int64(h.config.Files.MaxFileSizeMB) << 20
	if maxFiles < 1 {
		maxFiles = 1
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(maxFiles)*maxFileSize+multipartOverhead)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorResponse(c, http.StatusRequestEntityTooLarge, "превышен допустимый размер запроса")
			return nil, false
		}
		h.logger.Warn("неверный формат multipart запроса", zap.Error(err))
		badRequestResponse(c, "ожидается multipart/form-data")
		return nil, false
	}

	return form, true
}

func readUploadedFiles(headers []*multipart.FileHeader) ([]domain.UploadedFile, error) {
	files := make([]domain.UploadedFile, 0, len(headers))

	for _, fh := range headers {
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, domain.UploadedFile{FileName: fh.Filename, Data: data})
	}

	return files, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}
