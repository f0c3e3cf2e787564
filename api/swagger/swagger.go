package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FMS Tracker API",
        "description": "Document-collection and FMS review trackers for CRM projects",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
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
        {
            "name": "Projects",
            "description": "CRM projects and whole tracker fields"
        },
        {
            "name": "Templates",
            "description": "Document-collection templates"
        },
        {
            "name": "Trackers",
            "description": "Year-partitioned tracker editing"
        }
    ],
    "paths": {
        "/projects/{id}": {
            "get": {
                "tags": [
                    "Projects"
                ],
                "summary": "Get project",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "fields",
                        "in": "query",
                        "type": "string",
                        "required": false
                    }
                ]
            },
            "patch": {
                "tags": [
                    "Projects"
                ],
                "summary": "Replace tracker fields",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Deletion in progress",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "502": {
                        "description": "Persist failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ]
            }
        },
        "/document-collection-templates": {
            "get": {
                "tags": [
                    "Templates"
                ],
                "summary": "List templates",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "Templates"
                ],
                "summary": "Create template",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/TemplateRequest"
                        }
                    }
                ]
            }
        },
        "/document-collection-templates/{id}": {
            "get": {
                "tags": [
                    "Templates"
                ],
                "summary": "Get template",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            },
            "put": {
                "tags": [
                    "Templates"
                ],
                "summary": "Update template",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Default templates are read-only",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/TemplateRequest"
                        }
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Templates"
                ],
                "summary": "Delete template",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "409": {
                        "description": "Default templates are read-only",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}": {
            "get": {
                "tags": [
                    "Trackers"
                ],
                "summary": "View tracker year",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "year",
                        "in": "query",
                        "type": "string",
                        "required": false
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/sections": {
            "post": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Add section",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SectionInput"
                        }
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/sections/{sectionId}": {
            "put": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Update section",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "sectionId",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SectionInput"
                        }
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Delete section",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "502": {
                        "description": "Deletion rolled back",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "sectionId",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/sections/{sectionId}/documents": {
            "post": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Add document",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "sectionId",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/DocumentInput"
                        }
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/sections/{sectionId}/documents/{documentId}": {
            "put": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Update document",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "sectionId",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "documentId",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/DocumentInput"
                        }
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Delete document",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "502": {
                        "description": "Deletion rolled back",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "sectionId",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "documentId",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "year",
                        "in": "query",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/status": {
            "put": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Set cell status",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SetStatusRequest"
                        }
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/status/bulk": {
            "put": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Apply status to selection",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/BulkStatusRequest"
                        }
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/comments": {
            "post": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Add cell comment",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AddCommentRequest"
                        }
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/comments/{commentId}": {
            "delete": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Delete own comment",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Not the author",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "commentId",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/templates/{templateId}/apply": {
            "post": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Apply template to a year",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "templateId",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ApplyTemplateRequest"
                        }
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/export": {
            "get": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Export tracker year",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "text/csv",
                    "application/pdf",
                    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "year",
                        "in": "query",
                        "type": "string",
                        "required": false
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "required": false
                    }
                ],
                "responses": {
                    "200": {
                        "description": "File"
                    }
                }
            }
        },
        "/projects/{id}/trackers/{kind}/deeplink": {
            "get": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Resolve deep link",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Target not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "url",
                        "in": "query",
                        "type": "string",
                        "required": false
                    },
                    {
                        "name": "anchorTop",
                        "in": "query",
                        "type": "number",
                        "required": false
                    },
                    {
                        "name": "anchorLeft",
                        "in": "query",
                        "type": "number",
                        "required": false
                    },
                    {
                        "name": "anchorWidth",
                        "in": "query",
                        "type": "number",
                        "required": false
                    },
                    {
                        "name": "anchorHeight",
                        "in": "query",
                        "type": "number",
                        "required": false
                    },
                    {
                        "name": "popupWidth",
                        "in": "query",
                        "type": "number",
                        "required": false
                    },
                    {
                        "name": "popupHeight",
                        "in": "query",
                        "type": "number",
                        "required": false
                    },
                    {
                        "name": "viewportWidth",
                        "in": "query",
                        "type": "number",
                        "required": false
                    },
                    {
                        "name": "viewportHeight",
                        "in": "query",
                        "type": "number",
                        "required": false
                    },
                    {
                        "name": "margin",
                        "in": "query",
                        "type": "number",
                        "required": false
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/flush": {
            "post": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Flush pending edits",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/refresh": {
            "post": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Reload from the CRM",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/projects/{id}/trackers/{kind}/session": {
            "delete": {
                "tags": [
                    "Trackers"
                ],
                "summary": "Close tracker session",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "kind",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        }
    },
    "definitions": {
        "SectionInput": {
            "type": "object",
            "properties": {
                "year": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "reviewer": {
                    "type": "string"
                }
            },
            "required": [
                "name"
            ]
        },
        "DocumentInput": {
            "type": "object",
            "properties": {
                "year": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                }
            },
            "required": [
                "name"
            ]
        },
        "Cell": {
            "type": "object",
            "properties": {
                "sectionId": {
                    "type": "string"
                },
                "documentId": {
                    "type": "string"
                },
                "monthKey": {
                    "type": "string"
                }
            },
            "required": [
                "sectionId",
                "documentId",
                "monthKey"
            ]
        },
        "SetStatusRequest": {
            "type": "object",
            "properties": {
                "year": {
                    "type": "string"
                },
                "sectionId": {
                    "type": "string"
                },
                "documentId": {
                    "type": "string"
                },
                "monthKey": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                }
            },
            "required": [
                "sectionId",
                "documentId",
                "monthKey"
            ]
        },
        "BulkStatusRequest": {
            "type": "object",
            "properties": {
                "year": {
                    "type": "string"
                },
                "cells": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Cell"
                    }
                },
                "status": {
                    "type": "string"
                }
            },
            "required": [
                "cells",
                "status"
            ]
        },
        "AddCommentRequest": {
            "type": "object",
            "properties": {
                "year": {
                    "type": "string"
                },
                "sectionId": {
                    "type": "string"
                },
                "documentId": {
                    "type": "string"
                },
                "monthKey": {
                    "type": "string"
                },
                "text": {
                    "type": "string"
                }
            },
            "required": [
                "sectionId",
                "documentId",
                "monthKey",
                "text"
            ]
        },
        "TemplateRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "isDefault": {
                    "type": "boolean"
                },
                "sections": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "name": {
                                "type": "string"
                            },
                            "documents": {
                                "type": "array",
                                "items": {
                                    "type": "object",
                                    "properties": {
                                        "name": {
                                            "type": "string"
                                        },
                                        "description": {
                                            "type": "string"
                                        }
                                    }
                                }
                            }
                        }
                    }
                }
            },
            "required": [
                "name"
            ]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
            }
        },
        "ApplyTemplateRequest": {
            "type": "object",
            "properties": {
                "year": {
                    "type": "string"
                },
                "replace": {
                    "type": "boolean"
                }
            },
            "required": [
                "year"
            ]
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
