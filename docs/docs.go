// Package docs registers the OpenAPI description served at /swagger.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/bins": {
            "get": {
                "tags": ["bins"],
                "summary": "List bins",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "active or inactive", "name": "status", "in": "query"},
                    {"type": "string", "description": "generic or delivery_agent", "name": "type", "in": "query"},
                    {"type": "integer", "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "page offset", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}
            },
            "post": {
                "tags": ["bins"],
                "summary": "Create a bin",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"description": "bin", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateBinRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.BinView"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/bins/{id}": {
            "get": {
                "tags": ["bins"],
                "summary": "Get a bin with its items and capacity",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "bin id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BinView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/bins/{id}/assign-agent": {
            "post": {
                "tags": ["bins"],
                "summary": "Assign a delivery agent",
                "description": "Refused when the bin has no logged stock or holds stock the ledger does not explain",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "bin id", "name": "id", "in": "path", "required": true},
                    {"description": "agent", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.AssignAgentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BinView"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/bins/{id}/deduct": {
            "post": {
                "tags": ["movements"],
                "summary": "Deduct stock from a bin",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "bin id", "name": "id", "in": "path", "required": true},
                    {"description": "deduction", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.DeductInventoryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.MovementResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/bins/{id}/add": {
            "post": {
                "tags": ["movements"],
                "summary": "Add stock to a bin",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "bin id", "name": "id", "in": "path", "required": true},
                    {"description": "addition", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.AddInventoryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.MovementResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/bins/{id}/audit-logs": {
            "get": {
                "tags": ["ledger"],
                "summary": "Page through a bin's ledger, newest first",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "bin id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "addition, deduction or agent_assignment", "name": "action", "in": "query"},
                    {"type": "integer", "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "page offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/bins/{id}/integrity": {
            "get": {
                "tags": ["integrity"],
                "summary": "Reconcile a bin against its ledger",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "bin id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.IntegrityReport"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/integrity/sweep": {
            "get": {
                "tags": ["integrity"],
                "summary": "Summary of the most recent integrity sweep",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/jobs": {
            "get": {
                "tags": ["jobs"],
                "summary": "Background job status",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}
            }
        },
        "/jobs/{name}/run": {
            "post": {
                "tags": ["jobs"],
                "summary": "Trigger a background job now",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "integrity-sweep or ledger-archive", "name": "name", "in": "path", "required": true}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "common.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"},
                        "details": {"type": "object"}
                    }
                }
            }
        },
        "models.CreateBinRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string", "maxLength": 100},
                "type": {"type": "string", "enum": ["generic", "delivery_agent"]},
                "max_capacity": {"type": "integer", "minimum": 0}
            }
        },
        "models.AssignAgentRequest": {
            "type": "object",
            "required": ["agent_code", "agent_phone"],
            "properties": {
                "agent_code": {"type": "string"},
                "agent_phone": {"type": "string"}
            }
        },
        "models.DeductInventoryRequest": {
            "type": "object",
            "required": ["item_id", "quantity", "reason"],
            "properties": {
                "item_id": {"type": "string", "format": "uuid"},
                "quantity": {"type": "integer", "minimum": 1},
                "reason": {"type": "string"},
                "user_id": {"type": "string", "format": "uuid"}
            }
        },
        "models.AddInventoryRequest": {
            "type": "object",
            "required": ["item_id", "item_name", "quantity"],
            "properties": {
                "item_id": {"type": "string", "format": "uuid"},
                "item_name": {"type": "string"},
                "quantity": {"type": "integer", "minimum": 1},
                "cost_per_unit": {"type": "string"},
                "notes": {"type": "string"},
                "user_id": {"type": "string", "format": "uuid"}
            }
        },
        "models.BinItem": {
            "type": "object",
            "properties": {
                "item_id": {"type": "string", "format": "uuid"},
                "item_name": {"type": "string"},
                "quantity": {"type": "integer"},
                "reserved_quantity": {"type": "integer"},
                "cost_per_unit": {"type": "string"}
            }
        },
        "models.BinView": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "name": {"type": "string"},
                "type": {"type": "string"},
                "status": {"type": "string"},
                "max_capacity": {"type": "integer"},
                "assigned_to_da": {"type": "string"},
                "da_phone": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/models.BinItem"}},
                "current_capacity": {"type": "integer"},
                "available_capacity": {"type": "integer"}
            }
        },
        "models.MovementResult": {
            "type": "object",
            "properties": {
                "item": {"$ref": "#/definitions/models.BinItem"},
                "remaining_quantity": {"type": "integer"},
                "ledger_entry": {"type": "object"},
                "logged": {"type": "boolean"}
            }
        },
        "models.IntegrityReport": {
            "type": "object",
            "properties": {
                "bin_id": {"type": "string", "format": "uuid"},
                "total_bin_quantity": {"type": "integer"},
                "total_logged_additions": {"type": "integer"},
                "total_logged_deductions": {"type": "integer"},
                "expected_quantity": {"type": "integer"},
                "unlogged_stock": {"type": "integer"},
                "status": {"type": "string", "enum": ["CLEAN", "VIOLATION"]},
                "can_assign_agent": {"type": "boolean"},
                "replay_consistent": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "Bin Ledger API",
	Description:      "Bin inventory with an append-only movement ledger and integrity-gated agent assignment.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
