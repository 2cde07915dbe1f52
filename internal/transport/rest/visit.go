package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcenter/internal/domain"
)

// @Summary Записаться на визит
// @Description Создает визит в статусе pending. У пациента может быть не более настроенного лимита ожидающих визитов (BOOKING_MAX_ACTIVE_VISITS). Пациент записывается только сам (patient_id можно не указывать), персонал указывает patient_id
// @Tags Визиты
// @Accept json
// @Produce json
// @Param input body domain.CreateVisitDTO true "Врач, дата (YYYY-MM-DD) и время (HH:MM)"
// @Success 201 {object} domain.Visit "Созданный визит"
// @Failure 400 {object} errorResponseBody "Некорректная дата или время"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Врач или пациент не найден"
// @Failure 409 {object} errorResponseBody "Достигнут лимит активных визитов или время занято"
// @Failure 429 {object} errorResponseBody "Слишком много запросов"
// @Failure 500 {object} errorResponseBody "Внутренняя ошибка сервера"
// @Security ApiKeyAuth
// @Router /visits [post]
func (h *Handler) createVisit(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.CreateVisitDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	visit, err := h.services.Visit.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка создания визита")
		return
	}

	createdResponse(c, visit)
}

// @Summary Список визитов
// @Description Пациент видит свои визиты, врач свои, персонал все
// @Tags Визиты
// @Produce json
// @Param status query string false "pending, finished или cancelled"
// @Param doctor_id query int false "ID врача"
// @Param patient_id query int false "ID пациента"
// @Param date_from query string false "С даты (YYYY-MM-DD)"
// @Param date_to query string false "По дату (YYYY-MM-DD)"
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} paginatedResponse "Визиты"
// @Failure 400 {object} errorResponseBody "Неверные параметры"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 500 {object} errorResponseBody "Внутренняя ошибка сервера"
// @Security ApiKeyAuth
// @Router /visits [get]
func (h *Handler) getVisits(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	limit, offset, page := pagination(c)

	filter := domain.VisitFilter{
		DateFrom: optionalStringQuery(c, "date_from"),
		DateTo:   optionalStringQuery(c, "date_to"),
		Limit:    limit,
		Offset:   offset,
	}

	var ok bool
	if filter.DoctorID, ok = optionalInt64Query(c, "doctor_id"); !ok {
		return
	}
	if filter.PatientID, ok = optionalInt64Query(c, "patient_id"); !ok {
		return
	}

	for _, date := range []*string{filter.DateFrom, filter.DateTo} {
		if date == nil {
			continue
		}
		if _, err := time.Parse(domain.DateLayout, *date); err != nil {
			badRequestResponse(c, "дата должна быть в формате YYYY-MM-DD")
			return
		}
	}

	if status := c.Query("status"); status != "" {
		s := domain.VisitStatus(status)
		filter.Status = &s
	}

	visits, total, err := h.services.Visit.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения визитов")
		return
	}

	paginatedSuccessResponse(c, visits, total, page, limit)
}

// @Summary Получить визит по ID
// @Tags Визиты
// @Produce json
// @Param id path int true "ID визита"
// @Success 200 {object} domain.Visit "Визит"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Визит не найден"
// @Security ApiKeyAuth
// @Router /visits/{id} [get]
func (h *Handler) getVisitByID(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	visit, err := h.services.Visit.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения визита")
		return
	}

	successResponse(c, http.StatusOK, visit)
}

// @Summary Отменить визит
// @Description Отменить можно только ожидающий визит, который еще не начался
// @Tags Визиты
// @Produce json
// @Param id path int true "ID визита"
// @Success 200 {object} domain.Visit "Отмененный визит"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Визит не найден"
// @Failure 409 {object} errorResponseBody "Визит нельзя отменить"
// @Security ApiKeyAuth
// @Router /visits/{id}/cancel [post]
func (h *Handler) cancelVisit(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	visit, err := h.services.Visit.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка отмены визита")
		return
	}

	successResponse(c, http.StatusOK, visit)
}

// @Summary Проверить лимит активных визитов
// @Description Пациент проверяет свой лимит, персонал передает patient_id
// @Tags Визиты
// @Produce json
// @Param patient_id query int false "ID пациента (для персонала)"
// @Success 200 {object} map[string]bool "limit_reached"
// @Failure 400 {object} errorResponseBody "Не указан пациент"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Пациент не найден"
// @Security ApiKeyAuth
// @Router /visits/limit [get]
func (h *Handler) getVisitLimit(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var reached bool
	switch {
	case actor.Role == domain.UserRolePatient:
		reached, err = h.services.Visit.HasUserReachedActiveVisitsLimit(c.Request.Context(), actor.UserID)
	case actor.Role.IsStaff():
		patientID, ok := optionalInt64Query(c, "patient_id")
		if !ok {
			return
		}
		if patientID == nil {
			badRequestResponse(c, "укажите patient_id")
			return
		}
		reached, err = h.services.Visit.HasReachedActiveVisitsLimit(c.Request.Context(), *patientID)
	default:
		forbiddenResponse(c)
		return
	}
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка проверки лимита визитов")
		return
	}

	successResponse(c, http.StatusOK, gin.H{"limit_reached": reached})
}
