package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcenter/internal/domain"
)

// @Summary Завершить визит с заключением
// @Description Врач визита сохраняет заключение и файлы, визит переходит в статус finished. Заключение можно добавить только один раз и только к ожидающему визиту
// @Tags Заключения
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "ID визита"
// @Param description formData string true "Текст заключения"
// @Param files formData file false "Файлы (можно несколько)"
// @Success 201 {object} domain.VisitSummary "Заключение"
// @Failure 400 {object} errorResponseBody "Неверный формат запроса"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Визит не найден"
// @Failure 409 {object} errorResponseBody "Визит уже завершен"
// @Failure 413 {object} errorResponseBody "Слишком большой запрос"
// @Failure 422 {object} errorResponseBody "Ошибка валидации"
// @Failure 503 {object} errorResponseBody "Хранилище недоступно"
// @Security ApiKeyAuth
// @Router /visits/{id}/summary [post]
func (h *Handler) attachSummary(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	visitID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	dto, files, ok := h.bindSummary(c)
	if !ok {
		return
	}

	summary, err := h.services.Summary.Attach(c.Request.Context(), actor, visitID, dto, files)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка сохранения заключения")
		return
	}

	createdResponse(c, summary)
}

// @Summary Обновить заключение
// @Description Заменяет текст заключения и добавляет новые файлы к уже сохраненным
// @Tags Заключения
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "ID визита"
// @Param description formData string true "Текст заключения"
// @Param files formData file false "Дополнительные файлы"
// @Success 200 {object} domain.VisitSummary "Заключение"
// @Failure 400 {object} errorResponseBody "Неверный формат запроса"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Заключение не найдено"
// @Failure 422 {object} errorResponseBody "Ошибка валидации"
// @Failure 503 {object} errorResponseBody "Хранилище недоступно"
// @Security ApiKeyAuth
// @Router /visits/{id}/summary [put]
func (h *Handler) updateSummary(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	visitID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	dto, files, ok := h.bindSummary(c)
	if !ok {
		return
	}

	summary, err := h.services.Summary.Update(c.Request.Context(), actor, visitID, dto, files)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка обновления заключения")
		return
	}

	successResponse(c, http.StatusOK, summary)
}

// @Summary Получить заключение визита
// @Tags Заключения
// @Produce json
// @Param id path int true "ID визита"
// @Success 200 {object} domain.VisitSummary "Заключение"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Заключение не найдено"
// @Security ApiKeyAuth
// @Router /visits/{id}/summary [get]
func (h *Handler) getSummary(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	visitID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.services.Summary.Get(c.Request.Context(), actor, visitID)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения заключения")
		return
	}

	successResponse(c, http.StatusOK, summary)
}

// bindSummary accepts either a multipart form with files or a plain JSON
// body with the description only.
func (h *Handler) bindSummary(c *gin.Context) (domain.SummaryDTO, []domain.UploadedFile, bool) {
	var dto domain.SummaryDTO

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&dto); err != nil {
			h.logger.Warn("неверный формат данных", zap.Error(err))
			badRequestResponse(c, "неверный формат данных")
			return dto, nil, false
		}
		return dto, nil, true
	}

	form, ok := h.parseMultipart(c, h.config.Files.MaxSummaryFiles)
	if !ok {
		return dto, nil, false
	}

	if values := form.Value["description"]; len(values) > 0 {
		dto.Description = values[0]
	}

	files, err := readUploadedFiles(form.File["files"])
	if err != nil {
		h.logger.Warn("ошибка чтения файлов", zap.Error(err))
		badRequestResponse(c, "не удалось прочитать файлы")
		return dto, nil, false
	}

	return dto, files, true
}
