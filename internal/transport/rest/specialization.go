package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcenter/internal/domain"
)

// @Summary Получить список специализаций
// @Tags Специализации
// @Produce json
// @Success 200 {array} domain.Specialization "Специализации"
// @Failure 500 {object} errorResponseBody "Внутренняя ошибка сервера"
// @Router /specializations [get]
func (h *Handler) getSpecializations(c *gin.Context) {
	specializations, err := h.services.Specialization.List(c.Request.Context())
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения списка специализаций")
		return
	}

	successResponse(c, http.StatusOK, specializations)
}

// @Summary Получить специализацию по ID
// @Tags Специализации
// @Produce json
// @Param id path int true "ID специализации"
// @Success 200 {object} domain.Specialization "Специализация"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 404 {object} errorResponseBody "Специализация не найдена"
// @Router /specializations/{id} [get]
func (h *Handler) getSpecializationByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	specialization, err := h.services.Specialization.GetByID(c.Request.Context(), id)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения специализации")
		return
	}

	successResponse(c, http.StatusOK, specialization)
}

// @Summary Врачи специализации
// @Tags Специализации
// @Produce json
// @Param id path int true "ID специализации"
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} paginatedResponse "Врачи"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 404 {object} errorResponseBody "Специализация не найдена"
// @Router /specializations/{id}/doctors [get]
func (h *Handler) getSpecializationDoctors(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	limit, offset, page := pagination(c)

	doctors, total, err := h.services.Specialization.ListDoctors(c.Request.Context(), id, limit, offset)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения врачей специализации")
		return
	}

	paginatedSuccessResponse(c, doctors, total, page, limit)
}

// @Summary Создать специализацию
// @Description Создает новую специализацию (только для администраторов)
// @Tags Специализации
// @Accept json
// @Produce json
// @Param input body domain.CreateSpecializationDTO true "Данные специализации"
// @Success 201 {object} domain.Specialization "Созданная специализация"
// @Failure 400 {object} errorResponseBody "Неверный формат данных"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 409 {object} errorResponseBody "Специализация уже существует"
// @Failure 422 {object} errorResponseBody "Ошибка валидации"
// @Security ApiKeyAuth
// @Router /specializations [post]
func (h *Handler) createSpecialization(c *gin.Context) {
	var req domain.CreateSpecializationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	specialization, err := h.services.Specialization.Create(c.Request.Context(), req)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка создания специализации")
		return
	}

	createdResponse(c, specialization)
}

// @Summary Удалить специализацию
// @Tags Специализации
// @Produce json
// @Param id path int true "ID специализации"
// @Success 204 "Специализация удалена"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Специализация не найдена"
// @Security ApiKeyAuth
// @Router /specializations/{id} [delete]
func (h *Handler) deleteSpecialization(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.services.Specialization.Delete(c.Request.Context(), id); err != nil {
		h.serviceErrorResponse(c, err, "ошибка удаления специализации")
		return
	}

	noContentResponse(c)
}
