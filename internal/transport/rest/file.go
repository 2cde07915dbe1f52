package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary Ссылка на файл
// @Description Возвращает временную ссылку на скачивание. Доступно владельцам файла и администраторам. С параметром redirect=true выполняет перенаправление
// @Tags Файлы
// @Produce json
// @Param id path int true "ID файла"
// @Param redirect query bool false "Перенаправить на файл"
// @Success 200 {object} map[string]string "url"
// @Success 302 "Перенаправление на файл"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Файл не найден"
// @Failure 503 {object} errorResponseBody "Хранилище недоступно"
// @Security ApiKeyAuth
// @Router /files/{id} [get]
func (h *Handler) getFileURL(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	url, err := h.services.File.GetDownloadURL(c.Request.Context(), actor, id)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения ссылки на файл")
		return
	}

	if c.Query("redirect") == "true" {
		c.Redirect(http.StatusFound, url)
		return
	}

	successResponse(c, http.StatusOK, gin.H{"url": url})
}
