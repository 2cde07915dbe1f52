package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcenter/internal/domain"
)

// @Summary Список врачей
// @Description Возвращает врачей с фильтрацией по специализации и поиском по имени
// @Tags Врачи
// @Produce json
// @Param specialization_id query int false "ID специализации"
// @Param search query string false "Имя или фамилия"
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} paginatedResponse "Врачи"
// @Failure 400 {object} errorResponseBody "Неверные параметры"
// @Failure 500 {object} errorResponseBody "Внутренняя ошибка сервера"
// @Router /doctors [get]
func (h *Handler) getDoctors(c *gin.Context) {
	limit, offset, page := pagination(c)

	specializationID, ok := optionalInt64Query(c, "specialization_id")
	if !ok {
		return
	}

	filter := domain.DoctorFilter{
		SpecializationID: specializationID,
		Search:           optionalStringQuery(c, "search"),
		Limit:            limit,
		Offset:           offset,
	}

	doctors, total, err := h.services.Doctor.List(c.Request.Context(), filter)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка при получении врачей")
		return
	}

	paginatedSuccessResponse(c, doctors, total, page, limit)
}

// @Summary Получить врача по ID
// @Tags Врачи
// @Produce json
// @Param id path int true "ID врача"
// @Success 200 {object} domain.Doctor "Врач"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Router /doctors/{id} [get]
func (h *Handler) getDoctorByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	doctor, err := h.services.Doctor.GetByID(c.Request.Context(), id)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка при получении врача")
		return
	}

	successResponse(c, http.StatusOK, doctor)
}

// @Summary Создать врача
// @Description Создает учетную запись врача и его профиль (только для администраторов)
// @Tags Врачи
// @Accept json
// @Produce json
// @Param input body domain.CreateDoctorDTO true "Данные врача"
// @Success 201 {object} domain.Doctor "Созданный врач"
// @Failure 400 {object} errorResponseBody "Неверный формат данных"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 409 {object} errorResponseBody "Email уже используется"
// @Failure 422 {object} errorResponseBody "Ошибка валидации"
// @Failure 500 {object} errorResponseBody "Внутренняя ошибка сервера"
// @Security ApiKeyAuth
// @Router /doctors [post]
func (h *Handler) createDoctor(c *gin.Context) {
	var req domain.CreateDoctorDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	doctor, err := h.services.Doctor.Create(c.Request.Context(), req)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка при создании врача")
		return
	}

	createdResponse(c, doctor)
}

// @Summary Загрузить фото врача
// @Description Заменяет фото профиля врача. Предыдущее фото удаляется из хранилища
// @Tags Врачи
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "ID врача"
// @Param photo formData file true "Изображение"
// @Success 200 {object} domain.Doctor "Врач с новой ссылкой на фото"
// @Failure 400 {object} errorResponseBody "Файл не передан"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Failure 413 {object} errorResponseBody "Файл слишком большой"
// @Failure 422 {object} errorResponseBody "Файл не является изображением"
// @Failure 503 {object} errorResponseBody "Хранилище недоступно"
// @Security ApiKeyAuth
// @Router /doctors/{id}/photo [post]
func (h *Handler) uploadDoctorPhoto(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	form, ok := h.parseMultipart(c, 1)
	if !ok {
		return
	}

	headers := form.File["photo"]
	if len(headers) != 1 {
		badRequestResponse(c, "ожидается один файл в поле photo")
		return
	}

	data, err := readFileHeader(headers[0])
	if err != nil {
		h.logger.Warn("ошибка чтения файла", zap.Error(err))
		badRequestResponse(c, "не удалось прочитать файл")
		return
	}

	doctor, err := h.services.Doctor.UploadPhoto(c.Request.Context(), id, data, headers[0].Filename)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка при загрузке фото врача")
		return
	}

	successResponse(c, http.StatusOK, doctor)
}

// @Summary Добавить специализацию врачу
// @Tags Врачи
// @Produce json
// @Param id path int true "ID врача"
// @Param specId path int true "ID специализации"
// @Success 204 "Специализация добавлена"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Врач или специализация не найдены"
// @Security ApiKeyAuth
// @Router /doctors/{id}/specializations/{specId} [post]
func (h *Handler) addDoctorSpecialization(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	specializationID, ok := parseIDParam(c, "specId")
	if !ok {
		return
	}

	if err := h.services.Doctor.AddSpecialization(c.Request.Context(), doctorID, specializationID); err != nil {
		h.serviceErrorResponse(c, err, "ошибка при добавлении специализации")
		return
	}

	noContentResponse(c)
}

// @Summary Удалить специализацию у врача
// @Tags Врачи
// @Produce json
// @Param id path int true "ID врача"
// @Param specId path int true "ID специализации"
// @Success 204 "Специализация удалена"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Security ApiKeyAuth
// @Router /doctors/{id}/specializations/{specId} [delete]
func (h *Handler) removeDoctorSpecialization(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	specializationID, ok := parseIDParam(c, "specId")
	if !ok {
		return
	}

	if err := h.services.Doctor.RemoveSpecialization(c.Request.Context(), doctorID, specializationID); err != nil {
		h.serviceErrorResponse(c, err, "ошибка при удалении специализации")
		return
	}

	noContentResponse(c)
}
