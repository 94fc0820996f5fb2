package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/buildinfo"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/httpjson"
)

// handleOpenAPI renvoie une description OpenAPI minimale de l'API.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	jsonOK := func(schemaRef string) map[string]any {
		return map[string]any{
			"description": "OK",
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": schemaRef},
				},
			},
		}
	}
	jsonBody := func(schemaRef string, required bool) map[string]any {
		return map[string]any{
			"required": required,
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": schemaRef},
				},
			},
		}
	}
	jsonErr := map[string]any{
		"description": "Error",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/Error"},
			},
		},
	}
	idParam := []any{map[string]any{"name": "id", "in": "path", "required": true, "schema": map[string]any{"type": "string"}}}

	str := map[string]any{"type": "string"}
	integer := map[string]any{"type": "integer"}
	boolean := map[string]any{"type": "boolean"}
	dateTime := map[string]any{"type": "string", "format": "date-time"}
	audio := map[string]any{"type": "string", "enum": []any{"sub", "dub"}}

	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "anivideo-sync API",
			"version": buildinfo.Current().Version,
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"OpenAPIDocument": map[string]any{"type": "object", "additionalProperties": true},
				"Error": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"error": str,
						"code":  str,
					},
					"required": []any{"error"},
				},
				"Health": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"status": map[string]any{"type": "string", "enum": []any{"ok", "degraded"}},
						"cdn": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"degraded":               boolean,
								"consecutiveUnreachable": integer,
								"lastError":              str,
								"lastReachableAt":        dateTime,
								"lastUnreachableAt":      dateTime,
							},
						},
					},
				},
				"Settings": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"maxConcurrentShows":  map[string]any{"type": "integer", "minimum": 1, "maximum": 64},
						"probesPerSecond":     map[string]any{"type": "number", "minimum": 0, "description": "0 = pas de limite"},
						"syncIntervalMinutes": map[string]any{"type": "integer", "minimum": 0, "description": "0 = pas de passe automatique"},
						"ongoingOnly":         boolean,
						"maxWorkers":          map[string]any{"type": "integer", "minimum": 1, "maximum": 8},
					},
					"additionalProperties": false,
				},
				"SyncRequest": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"dryRun":      boolean,
						"showIds":     map[string]any{"type": "array", "items": str},
						"ongoingOnly": boolean,
					},
					"additionalProperties": false,
				},
				"SyncRun": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":        str,
						"type":      map[string]any{"type": "string", "enum": []any{"sync", "sync-dry"}},
						"state":     map[string]any{"type": "string", "enum": []any{"queued", "running", "completed", "failed", "canceled"}},
						"progress":  map[string]any{"type": "number", "format": "double"},
						"createdAt": dateTime,
						"updatedAt": dateTime,
						"params":    map[string]any{"$ref": "#/components/schemas/SyncRequest"},
						"result": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id":           str,
								"dryRun":       boolean,
								"startedAt":    dateTime,
								"finishedAt":   dateTime,
								"visited":      integer,
								"added":        integer,
								"changedShows": map[string]any{"type": "array", "items": str},
								"saved":        boolean,
								"canceled":     boolean,
							},
						},
						"errorCode": map[string]any{"type": "string", "enum": []any{"catalog_load", "catalog_save", "canceled", "invalid_params", "internal"}},
						"error":     str,
					},
					"required": []any{"id", "type", "state", "progress", "createdAt", "updatedAt"},
				},
				"SyncRunList": map[string]any{"type": "array", "items": map[string]any{"$ref": "#/components/schemas/SyncRun"}},
				"ShowSummary": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":         str,
						"title":      str,
						"seasons":    integer,
						"ongoing":    boolean,
						"coverImage": str,
					},
				},
				"ShowList": map[string]any{"type": "array", "items": map[string]any{"$ref": "#/components/schemas/ShowSummary"}},
				"Show": map[string]any{
					"type":                 "object",
					"description":          "Document du catalogue (format output.json).",
					"additionalProperties": true,
				},
				"ShowStatus": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":    str,
						"title": str,
						"seasons": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"season": integer,
									"label":  str,
									"type":   map[string]any{"type": "string", "enum": []any{"series", "movie"}},
									"sub":    map[string]any{"type": "integer", "nullable": true},
									"dub":    map[string]any{"type": "integer", "nullable": true},
									"max":    integer,
									"status": map[string]any{"type": "string", "enum": []any{"ongoing", "paused", "finished", "upcoming"}},
								},
							},
						},
					},
				},
				"Notification": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":           str,
						"showId":       str,
						"showTitle":    str,
						"season":       integer,
						"audio":        audio,
						"episode":      integer,
						"discoveredAt": dateTime,
					},
				},
				"NotificationList": map[string]any{"type": "array", "items": map[string]any{"$ref": "#/components/schemas/Notification"}},
			},
		},
		"paths": map[string]any{
			"/api/v1/health": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK("#/components/schemas/Health")}},
			},
			"/api/v1/version": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/openapi.json": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK("#/components/schemas/OpenAPIDocument")}},
			},
			"/api/v1/events": map[string]any{
				"get": map[string]any{
					"parameters": []any{map[string]any{"name": "topics", "in": "query", "schema": str, "description": "Préfixes séparés par des virgules"}},
					"responses":  map[string]any{"200": map[string]any{"description": "SSE"}},
				},
			},
			"/api/v1/sync": map[string]any{
				"post": map[string]any{
					"requestBody": jsonBody("#/components/schemas/SyncRequest", false),
					"responses": map[string]any{
						"202": jsonOK("#/components/schemas/SyncRun"),
						"400": jsonErr,
						"500": jsonErr,
					},
				},
			},
			"/api/v1/sync/runs": map[string]any{
				"get": map[string]any{
					"parameters": []any{
						map[string]any{"name": "type", "in": "query", "schema": map[string]any{"type": "string", "enum": []any{"sync", "sync-dry"}}},
						map[string]any{"name": "state", "in": "query", "schema": str},
						map[string]any{"name": "limit", "in": "query", "schema": integer},
					},
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/SyncRunList"),
						"400": jsonErr,
						"500": jsonErr,
					},
				},
			},
			"/api/v1/sync/runs/{id}": map[string]any{
				"get": map[string]any{
					"parameters": idParam,
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/SyncRun"),
						"404": jsonErr,
						"500": jsonErr,
					},
				},
			},
			"/api/v1/sync/runs/{id}/cancel": map[string]any{
				"post": map[string]any{
					"parameters": idParam,
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/SyncRun"),
						"404": jsonErr,
						"500": jsonErr,
					},
				},
			},
			"/api/v1/shows": map[string]any{
				"get": map[string]any{
					"parameters": []any{map[string]any{"name": "ongoing", "in": "query", "schema": boolean}},
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/ShowList"),
						"500": jsonErr,
					},
				},
			},
			"/api/v1/shows/{id}": map[string]any{
				"get": map[string]any{
					"parameters": idParam,
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Show"),
						"404": jsonErr,
						"500": jsonErr,
					},
				},
			},
			"/api/v1/shows/{id}/status": map[string]any{
				"get": map[string]any{
					"parameters": idParam,
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/ShowStatus"),
						"404": jsonErr,
						"500": jsonErr,
					},
				},
			},
			"/api/v1/shows/{id}/sync": map[string]any{
				"post": map[string]any{
					"parameters": idParam,
					"requestBody": map[string]any{
						"required": false,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{"type": "object", "properties": map[string]any{"dryRun": boolean}},
							},
						},
					},
					"responses": map[string]any{
						"202": jsonOK("#/components/schemas/SyncRun"),
						"404": jsonErr,
						"500": jsonErr,
					},
				},
			},
			"/api/v1/notifications": map[string]any{
				"get": map[string]any{
					"parameters": []any{
						map[string]any{"name": "show", "in": "query", "schema": str},
						map[string]any{"name": "limit", "in": "query", "schema": integer},
					},
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/NotificationList"),
						"500": jsonErr,
					},
				},
			},
			"/api/v1/settings": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Settings"),
						"500": jsonErr,
					},
				},
				"put": map[string]any{
					"requestBody": jsonBody("#/components/schemas/Settings", true),
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Settings"),
						"400": jsonErr,
						"500": jsonErr,
					},
				},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, doc)
}
