package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Report Desk API",
        "description": "Report intake and moderation workflow service",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Reports", "description": "Report lifecycle: intake, claim, release, review"},
        {"name": "Files", "description": "Signed attachment downloads"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check including database connectivity",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/api/v1/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "List every report with derived status",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token"}
                }
            },
            "post": {
                "tags": ["Reports"],
                "summary": "Submit a report with its PDF attachment",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "pdf_file", "in": "formData", "required": true, "type": "file"},
                    {"name": "reporter_name", "in": "formData", "required": true, "type": "string"},
                    {"name": "reporter_email", "in": "formData", "required": true, "type": "string"},
                    {"name": "reported_institution", "in": "formData", "type": "string"},
                    {"name": "report_description", "in": "formData", "type": "string"},
                    {"name": "institution_name", "in": "formData", "type": "string"},
                    {"name": "institution_id", "in": "formData", "type": "string"},
                    {"name": "numer_rspo", "in": "formData", "type": "string"},
                    {"name": "report_reason", "in": "formData", "type": "string"},
                    {"name": "content", "in": "formData", "type": "string", "description": "Optional JSON object merged into the report document"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure"},
                    "502": {"description": "Attachment upload failed"}
                }
            }
        },
        "/api/v1/reports/available": {
            "get": {
                "tags": ["Reports"],
                "summary": "List unclaimed pending reports",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reports/assigned": {
            "get": {
                "tags": ["Reports"],
                "summary": "List the caller's active workload",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token"}
                }
            }
        },
        "/api/v1/reports/completed": {
            "get": {
                "tags": ["Reports"],
                "summary": "List reports completed by the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token"}
                }
            }
        },
        "/api/v1/reports/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export the report roster as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered export"},
                    "400": {"description": "Unsupported format"}
                }
            }
        },
        "/api/v1/reports/{id}/assign": {
            "post": {
                "tags": ["Reports"],
                "summary": "Claim a report for the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Assigned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Report not found"},
                    "409": {"description": "Already claimed"}
                }
            }
        },
        "/api/v1/reports/{id}/unassign": {
            "post": {
                "tags": ["Reports"],
                "summary": "Release the caller's claim on a report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Released", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not assigned to the caller"}
                }
            }
        },
        "/api/v1/reports/{id}/review": {
            "post": {
                "tags": ["Reports"],
                "summary": "Complete the review of an owned report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "Completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Report not found"},
                    "409": {"description": "Not assigned to the caller"}
                }
            }
        },
        "/api/v1/reports/{id}/pdf-url": {
            "get": {
                "tags": ["Reports"],
                "summary": "Issue a signed download link for the report attachment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Signed link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Report or attachment not found"}
                }
            }
        },
        "/files/download": {
            "get": {
                "tags": ["Files"],
                "summary": "Stream an attachment referenced by a signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Attachment bytes"},
                    "403": {"description": "Invalid or expired token"},
                    "404": {"description": "Attachment not found"}
                }
            }
        }
    },
    "definitions": {
        "ReviewRequest": {
            "type": "object",
            "properties": {
                "comparison_notes": {"type": "string"},
                "notes": {"type": "string"},
                "findings": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
