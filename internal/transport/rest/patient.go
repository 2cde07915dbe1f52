package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcenter/internal/domain"
)

// @Summary Зарегистрировать пациента
// @Description Пациент создает собственный профиль. Регистратор или администратор создает пациента вместе с учетной записью (email и password обязательны)
// @Tags Пациенты
// @Accept json
// @Produce json
// @Param input body domain.CreatePatientDTO true "Данные пациента"
// @Success 201 {object} domain.Patient "Созданный пациент"
// @Failure 400 {object} errorResponseBody "Неверный формат данных"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 409 {object} errorResponseBody "Профиль или email уже существует"
// @Failure 422 {object} errorResponseBody "Ошибка валидации"
// @Failure 500 {object} errorResponseBody "Внутренняя ошибка сервера"
// @Security ApiKeyAuth
// @Router /patients [post]
func (h *Handler) createPatient(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.CreatePatientDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	patient, err := h.services.Patient.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка при регистрации пациента")
		return
	}

	createdResponse(c, patient)
}

// @Summary Список пациентов
// @Description Поиск пациентов по имени, фамилии или PESEL (только для персонала)
// @Tags Пациенты
// @Produce json
// @Param search query string false "Имя или фамилия"
// @Param pesel query string false "PESEL"
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} paginatedResponse "Пациенты"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 500 {object} errorResponseBody "Внутренняя ошибка сервера"
// @Security ApiKeyAuth
// @Router /patients [get]
func (h *Handler) getPatients(c *gin.Context) {
	limit, offset, page := pagination(c)

	filter := domain.PatientFilter{
		Search: optionalStringQuery(c, "search"),
		PESEL:  optionalStringQuery(c, "pesel"),
		Limit:  limit,
		Offset: offset,
	}

	patients, total, err := h.services.Patient.List(c.Request.Context(), filter)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка при получении пациентов")
		return
	}

	paginatedSuccessResponse(c, patients, total, page, limit)
}

// @Summary Мой профиль пациента
// @Tags Пациенты
// @Produce json
// @Success 200 {object} domain.Patient "Профиль пациента"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 404 {object} errorResponseBody "Профиль не создан"
// @Security ApiKeyAuth
// @Router /patients/me [get]
func (h *Handler) getMyPatientProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	patient, err := h.services.Patient.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка при получении профиля пациента")
		return
	}

	successResponse(c, http.StatusOK, patient)
}

// @Summary Получить пациента по ID
// @Tags Пациенты
// @Produce json
// @Param id path int true "ID пациента"
// @Success 200 {object} domain.Patient "Пациент"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Пациент не найден"
// @Security ApiKeyAuth
// @Router /patients/{id} [get]
func (h *Handler) getPatientByID(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	patient, err := h.services.Patient.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка при получении пациента")
		return
	}

	successResponse(c, http.StatusOK, patient)
}

// @Summary Обновить данные пациента
// @Description Частичное обновление: передаются только изменяемые поля
// @Tags Пациенты
// @Accept json
// @Produce json
// @Param id path int true "ID пациента"
// @Param input body domain.UpdatePatientDTO true "Новые данные"
// @Success 200 {object} domain.Patient "Обновленный пациент"
// @Failure 400 {object} errorResponseBody "Неверный формат данных"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Пациент не найден"
// @Failure 422 {object} errorResponseBody "Ошибка валидации"
// @Security ApiKeyAuth
// @Router /patients/{id} [put]
func (h *Handler) updatePatient(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req domain.UpdatePatientDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	patient, err := h.services.Patient.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка при обновлении пациента")
		return
	}

	successResponse(c, http.StatusOK, patient)
}
