// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with `swag init -g internal/handlers/handler.go` after changing
// handler annotations.
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
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "Full snapshot",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Snapshot"}}}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Serial link and MCU health",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.Status"}}}
            }
        },
        "/temperature": {
            "get": {
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "Temperature probes",
                "parameters": [{"type": "boolean", "name": "detail", "in": "query"}],
                "responses": {"200": {"description": "name to value, or name to record with detail"}}
            }
        },
        "/temperature/{name}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "One temperature probe",
                "parameters": [
                    {"type": "string", "name": "name", "in": "path", "required": true},
                    {"type": "boolean", "name": "detail", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "unknown channel"}}
            }
        },
        "/relay": {
            "get": {
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "Relays",
                "responses": {"200": {"description": "name to state"}}
            }
        },
        "/relay/{name}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "One relay",
                "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "unknown channel"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["commands"],
                "summary": "Switch a relay",
                "parameters": [
                    {"type": "string", "name": "name", "in": "path", "required": true},
                    {"name": "state", "in": "body", "required": true, "schema": {"type": "boolean"}}
                ],
                "responses": {
                    "200": {"description": "queued"},
                    "400": {"description": "body is not a JSON bool"},
                    "403": {"description": "remote client without a valid token"},
                    "404": {"description": "unknown channel"}
                }
            }
        },
        "/pwm": {
            "get": {
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "PWM outputs",
                "parameters": [{"type": "boolean", "name": "detail", "in": "query"}],
                "responses": {"200": {"description": "name to percent"}}
            }
        },
        "/pwm/{name}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "One PWM output",
                "parameters": [
                    {"type": "string", "name": "name", "in": "path", "required": true},
                    {"type": "boolean", "name": "detail", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "unknown channel"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["commands"],
                "summary": "Set a duty cycle in percent",
                "parameters": [
                    {"type": "string", "name": "name", "in": "path", "required": true},
                    {"name": "percent", "in": "body", "required": true, "schema": {"type": "number"}}
                ],
                "responses": {
                    "200": {"description": "queued"},
                    "400": {"description": "body is not a finite number"},
                    "403": {"description": "remote client without a valid token"},
                    "404": {"description": "unknown channel"}
                }
            }
        },
        "/analog": {
            "get": {
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "Analog inputs",
                "parameters": [{"type": "boolean", "name": "detail", "in": "query"}],
                "responses": {"200": {"description": "name to value"}}
            }
        },
        "/analog/{name}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "One analog input",
                "parameters": [
                    {"type": "string", "name": "name", "in": "path", "required": true},
                    {"type": "boolean", "name": "detail", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "unknown channel"}}
            }
        },
        "/logs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["logs"],
                "summary": "Operational event log",
                "parameters": [
                    {"type": "string", "name": "from", "in": "query", "description": "RFC3339 or YYYY-MM-DD"},
                    {"type": "string", "name": "to", "in": "query", "description": "RFC3339 or YYYY-MM-DD (end of day)"},
                    {"type": "string", "name": "type", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "bad range"}}
            }
        },
        "/ws": {
            "get": {
                "tags": ["channels"],
                "summary": "Snapshot stream",
                "description": "Websocket; pushes {type:snapshot,data} when the snapshot changes.",
                "parameters": [
                    {"type": "string", "name": "interval", "in": "query"},
                    {"type": "integer", "name": "interval_ms", "in": "query"}
                ],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "definitions": {
        "models.Snapshot": {
            "type": "object",
            "properties": {
                "temperature": {"type": "array", "items": {"type": "object"}},
                "relay": {"type": "array", "items": {"type": "object"}},
                "pwm": {"type": "array", "items": {"type": "object"}},
                "analog": {"type": "array", "items": {"type": "object"}},
                "health": {"type": "object"}
            }
        },
        "service.Status": {
            "type": "object",
            "properties": {
                "serial_link": {
                    "type": "object",
                    "properties": {
                        "alive": {"type": "boolean"},
                        "msg": {"type": "string"},
                        "trace": {"type": "string"}
                    }
                },
                "mcu": {
                    "type": "object",
                    "properties": {
                        "reset-source": {"type": "array", "items": {"type": "string"}},
                        "reset-time": {"type": "string"}
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Solar controller API",
	Description:      "Channel reads, relay and PWM commands, link status and the event log of the solar rig bridge.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
