package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcenter/internal/domain"
)

// @Summary Текущий пользователь
// @Description Возвращает учетную запись авторизованного пользователя
// @Tags Пользователи
// @Produce json
// @Success 200 {object} domain.User "Данные пользователя"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 404 {object} errorResponseBody "Пользователь не найден"
// @Security ApiKeyAuth
// @Router /users/me [get]
func (h *Handler) getCurrentUser(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	user, err := h.services.User.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка при получении пользователя")
		return
	}

	successResponse(c, http.StatusOK, user)
}

// @Summary Создать пользователя
// @Description Создает учетную запись с указанной ролью (только для администраторов)
// @Tags Пользователи
// @Accept json
// @Produce json
// @Param input body domain.CreateUserDTO true "Данные пользователя"
// @Success 201 {object} domain.User "Созданный пользователь"
// @Failure 400 {object} errorResponseBody "Неверный формат данных"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 409 {object} errorResponseBody "Email уже используется"
// @Failure 422 {object} errorResponseBody "Ошибка валидации"
// @Failure 500 {object} errorResponseBody "Внутренняя ошибка сервера"
// @Security ApiKeyAuth
// @Router /users [post]
func (h *Handler) createUser(c *gin.Context) {
	var req domain.CreateUserDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	user, err := h.services.User.Create(c.Request.Context(), req)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка при создании пользователя")
		return
	}

	createdResponse(c, user)
}

// @Summary Список пользователей
// @Description Возвращает учетные записи постранично (только для администраторов)
// @Tags Пользователи
// @Produce json
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} paginatedResponse "Пользователи"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 500 {object} errorResponseBody "Внутренняя ошибка сервера"
// @Security ApiKeyAuth
// @Router /users [get]
func (h *Handler) getUsers(c *gin.Context) {
	limit, offset, page := pagination(c)

	users, total, err := h.services.User.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка при получении пользователей")
		return
	}

	paginatedSuccessResponse(c, users, total, page, limit)
}
