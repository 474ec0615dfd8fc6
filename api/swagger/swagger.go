package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Glee Club Portal Grades API",
        "description": "Term gradebook: weighted composite grades, class statistics, summary commits and roster exports.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Grades", "description": "Roster calculation and grade summaries"},
        {"name": "Reports", "description": "Asynchronous roster exports"},
        {"name": "System", "description": "Runtime counters"}
    ],
    "paths": {
        "/grades/terms/{term}": {
            "get": {
                "tags": ["Grades"],
                "summary": "Compute the grade roster for a term",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "term", "in": "path", "required": true, "type": "string"},
                    {"name": "midterm", "in": "query", "type": "number"},
                    {"name": "assignments", "in": "query", "type": "number"},
                    {"name": "journals", "in": "query", "type": "number"},
                    {"name": "participation", "in": "query", "type": "number"},
                    {"name": "policy", "in": "query", "type": "string", "enum": ["literal", "renormalize"]},
                    {"name": "refresh", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Roster", "schema": {"$ref": "#/definitions/GradeRosterEnvelope"}},
                    "400": {"description": "Invalid weights or parameters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Grade sources unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/terms/{term}/students/{studentId}": {
            "get": {
                "tags": ["Grades"],
                "summary": "Grade breakdown for one student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "term", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "policy", "in": "query", "type": "string", "enum": ["literal", "renormalize"]}
                ],
                "responses": {
                    "200": {"description": "Student summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not permitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/terms/{term}/summaries": {
            "get": {
                "tags": ["Grades"],
                "summary": "List committed grade summaries",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "term", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Summaries", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Grades"],
                "summary": "Recompute and upsert grade summaries",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "term", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CommitRequest"}}
                ],
                "responses": {
                    "200": {"description": "Commit result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Summary write failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/grades": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a roster export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Job queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Job status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished export via signed token",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Aggregated runtime counters",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Snapshot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GradeWeights": {
            "type": "object",
            "properties": {
                "midterm": {"type": "number"},
                "assignments": {"type": "number"},
                "journals": {"type": "number"},
                "participation": {"type": "number"}
            }
        },
        "CommitRequest": {
            "type": "object",
            "properties": {
                "weights": {"$ref": "#/definitions/GradeWeights"},
                "policy": {"type": "string", "enum": ["literal", "renormalize"]}
            }
        },
        "ReportRequest": {
            "type": "object",
            "required": ["term", "format"],
            "properties": {
                "term": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "weights": {"$ref": "#/definitions/GradeWeights"},
                "policy": {"type": "string", "enum": ["literal", "renormalize"]}
            }
        },
        "StudentGradeSummary": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "student_name": {"type": "string"},
                "student_email": {"type": "string"},
                "midterm_score": {"type": "number"},
                "assignment_average": {"type": "number"},
                "journal_average": {"type": "number"},
                "participation_score": {"type": "number"},
                "total_points": {"type": "number"},
                "total_possible": {"type": "number"},
                "percentage": {"type": "number"},
                "letter_grade": {"type": "string"}
            }
        },
        "ClassStatistics": {
            "type": "object",
            "properties": {
                "total_students": {"type": "integer"},
                "average_percentage": {"type": "number"},
                "passing_rate": {"type": "number"},
                "grade_distribution": {"type": "object"}
            }
        },
        "GradeRoster": {
            "type": "object",
            "properties": {
                "term": {"type": "string"},
                "weights": {"$ref": "#/definitions/GradeWeights"},
                "policy": {"type": "string"},
                "students": {"type": "array", "items": {"$ref": "#/definitions/StudentGradeSummary"}},
                "statistics": {"$ref": "#/definitions/ClassStatistics"},
                "computed_at": {"type": "string", "format": "date-time"},
                "cached": {"type": "boolean"}
            }
        },
        "GradeRosterEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/GradeRoster"},
                "meta": {"type": "object"}
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
