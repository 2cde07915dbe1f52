package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcenter/internal/domain"
)

// @Summary Оценить врача
// @Description Создает или обновляет оценку пациента. Оценить можно только врача, у которого был завершенный визит
// @Tags Оценки
// @Accept json
// @Produce json
// @Param input body domain.RateDoctorDTO true "Оценка от 1 до 5 и комментарий"
// @Success 200 {object} domain.DoctorRating "Оценка"
// @Failure 400 {object} errorResponseBody "Неверный формат данных"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Нет завершенного визита у врача"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Failure 422 {object} errorResponseBody "Ошибка валидации"
// @Security ApiKeyAuth
// @Router /ratings [put]
func (h *Handler) rateDoctor(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.RateDoctorDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	rating, err := h.services.Rating.Rate(c.Request.Context(), actor, req)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка сохранения оценки")
		return
	}

	successResponse(c, http.StatusOK, rating)
}

// @Summary Оценки врача
// @Description Возвращает оценки врача и среднюю оценку
// @Tags Оценки
// @Produce json
// @Param id path int true "ID врача"
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} map[string]interface{} "ratings и stats"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Router /doctors/{id}/ratings [get]
func (h *Handler) getDoctorRatings(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	limit, offset, _ := pagination(c)

	ratings, stats, err := h.services.Rating.ListByDoctor(c.Request.Context(), doctorID, limit, offset)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения оценок")
		return
	}

	successResponse(c, http.StatusOK, gin.H{
		"ratings": ratings,
		"stats":   stats,
	})
}

// @Summary Может ли пациент оценить врача
// @Tags Оценки
// @Produce json
// @Param id path int true "ID врача"
// @Success 200 {object} map[string]bool "can_rate"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступно только пациентам"
// @Security ApiKeyAuth
// @Router /doctors/{id}/can-rate [get]
func (h *Handler) canRateDoctor(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	canRate, err := h.services.Rating.CanRate(c.Request.Context(), actor, doctorID)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка проверки возможности оценки")
		return
	}

	successResponse(c, http.StatusOK, gin.H{"can_rate": canRate})
}

// @Summary Удалить оценку
// @Description Удалить оценку может ее автор или администратор
// @Tags Оценки
// @Produce json
// @Param id path int true "ID оценки"
// @Success 204 "Оценка удалена"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Оценка не найдена"
// @Security ApiKeyAuth
// @Router /ratings/{id} [delete]
func (h *Handler) deleteRating(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.services.Rating.Delete(c.Request.Context(), actor, id); err != nil {
		h.serviceErrorResponse(c, err, "ошибка удаления оценки")
		return
	}

	noContentResponse(c)
}
