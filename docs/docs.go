// Package docs registers the OpenAPI description served under /swagger.
// The full description is regenerated from handler annotations with
// `swag init -g main.go`; the template below covers the booking endpoints.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/visits": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Визиты"],
                "summary": "Записаться на визит",
                "parameters": [
                    {
                        "description": "Врач, дата (YYYY-MM-DD) и время (HH:MM)",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/domain.CreateVisitDTO"}
                    }
                ],
                "responses": {
                    "201": {"description": "Созданный визит"},
                    "400": {"description": "Некорректная дата или время"},
                    "404": {"description": "Врач или пациент не найден"},
                    "409": {"description": "Достигнут лимит активных визитов или время занято"}
                }
            },
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Визиты"],
                "summary": "Список визитов",
                "responses": {"200": {"description": "Визиты"}}
            }
        },
        "/visits/{id}/cancel": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Визиты"],
                "summary": "Отменить визит",
                "parameters": [{"type": "integer", "description": "ID визита", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Отмененный визит"},
                    "409": {"description": "Визит нельзя отменить"}
                }
            }
        },
        "/visits/{id}/summary": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Заключения"],
                "summary": "Завершить визит с заключением",
                "parameters": [
                    {"type": "integer", "description": "ID визита", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Текст заключения", "name": "description", "in": "formData", "required": true},
                    {"type": "file", "description": "Файлы", "name": "files", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Заключение"},
                    "409": {"description": "Визит уже завершен"}
                }
            }
        }
    },
    "definitions": {
        "domain.CreateVisitDTO": {
            "type": "object",
            "required": ["date", "doctor_id", "time"],
            "properties": {
                "date": {"type": "string"},
                "doctor_id": {"type": "integer"},
                "patient_id": {"type": "integer"},
                "time": {"type": "string"},
                "visit_type": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Medcenter API",
	Description:      "API записи пациентов на визиты к врачам",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
