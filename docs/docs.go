// Package docs holds the OpenAPI description served at /swagger. It follows
// the swag annotations on the handlers; keep the two in step when routes change.
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
        "/check-email": {
            "post": {
                "description": "Reports whether an account already uses the given email.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Auth"
                ],
                "summary": "Check email availability",
                "parameters": [
                    {
                        "description": "Email to check",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.CheckEmailRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.CheckEmailResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid input",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    },
                    "500": {
                        "description": "Server error",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            }
        },
        "/signup": {
            "post": {
                "description": "Creates an account and starts a session.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Auth"
                ],
                "summary": "Register a new user",
                "parameters": [
                    {
                        "description": "Sign-up form",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.SignupRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Account created successfully!",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    },
                    "400": {
                        "description": "Validation failure",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    },
                    "500": {
                        "description": "Server error",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            }
        },
        "/login": {
            "post": {
                "description": "Verifies credentials, sets the session and display cookies.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Auth"
                ],
                "summary": "Log in",
                "parameters": [
                    {
                        "description": "Credentials",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.LoginRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.LoginResponse"
                        }
                    },
                    "400": {
                        "description": "Request must be JSON",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    },
                    "401": {
                        "description": "Incorrect email or password",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    },
                    "500": {
                        "description": "Server error",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            },
            "get": {
                "description": "Redirects to the dashboard when the browser already holds a valid session.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Auth"
                ],
                "summary": "Login page state",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "boolean"
                            }
                        }
                    },
                    "303": {
                        "description": "Redirect to /dashboard"
                    }
                }
            }
        },
        "/clear-cookies": {
            "post": {
                "produces": [
                    "text/plain"
                ],
                "tags": [
                    "Auth"
                ],
                "summary": "Clear login cookies",
                "responses": {
                    "200": {
                        "description": "Cookies cleared",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/signout": {
            "get": {
                "tags": [
                    "Auth"
                ],
                "summary": "Sign out",
                "responses": {
                    "303": {
                        "description": "Redirect to /"
                    }
                }
            }
        },
        "/api/me": {
            "get": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Auth"
                ],
                "summary": "Current user",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.SessionUser"
                        }
                    },
                    "401": {
                        "description": "Authentication required",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            }
        },
        "/auth/{provider}": {
            "get": {
                "tags": [
                    "Auth"
                ],
                "summary": "Start OAuth login",
                "parameters": [
                    {
                        "enum": [
                            "google"
                        ],
                        "type": "string",
                        "description": "OAuth provider",
                        "name": "provider",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "307": {
                        "description": "Redirect to provider"
                    }
                }
            }
        },
        "/auth/{provider}/callback": {
            "get": {
                "description": "Finds or creates the account by email and starts a session.",
                "tags": [
                    "Auth"
                ],
                "summary": "OAuth callback",
                "parameters": [
                    {
                        "enum": [
                            "google"
                        ],
                        "type": "string",
                        "description": "OAuth provider",
                        "name": "provider",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "303": {
                        "description": "Redirect to /dashboard"
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            }
        },
        "/chatbot": {
            "post": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "description": "Sends the prompt to the language model. Failures still answer 200 with an apology text.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Chatbot"
                ],
                "summary": "Ask the chatbot",
                "parameters": [
                    {
                        "description": "Prompt",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.ChatRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ChatResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid Input",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            }
        },
        "/api/recommendations": {
            "post": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "description": "Asks the model for a meal that fits the stored food preferences.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Chatbot"
                ],
                "summary": "Meal recommendation",
                "parameters": [
                    {
                        "description": "Meal",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.RecommendationRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ChatResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid Input",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            }
        },
        "/api/profile": {
            "get": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "description": "Returns the user's name, email, picture and food preferences.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Profile"
                ],
                "summary": "Get profile",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.Profile"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            },
            "put": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "description": "Partially updates profile fields. Omitted fields are left untouched.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Profile"
                ],
                "summary": "Update profile",
                "parameters": [
                    {
                        "description": "Profile fields",
                        "name": "profile",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.UpdateProfileParams"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.Profile"
                        }
                    },
                    "400": {
                        "description": "Invalid Input",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            }
        },
        "/api/profile/picture": {
            "post": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "description": "Accepts a png, jpg or jpeg file up to the configured size.",
                "consumes": [
                    "multipart/form-data"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Profile"
                ],
                "summary": "Upload profile picture",
                "parameters": [
                    {
                        "type": "file",
                        "description": "Picture",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ProfilePictureResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid file",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    },
                    "413": {
                        "description": "File too large",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            },
            "get": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "description": "Resolves the picture path, falling back to the default picture.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Profile"
                ],
                "summary": "Profile picture path",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ProfilePictureResponse"
                        }
                    }
                }
            }
        },
        "/api/orders": {
            "post": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Orders"
                ],
                "summary": "Place an order",
                "parameters": [
                    {
                        "description": "Order",
                        "name": "order",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.CreateOrderParams"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/types.Order"
                        }
                    },
                    "400": {
                        "description": "Invalid Input",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            },
            "get": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "description": "Returns the user's orders, newest first.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Orders"
                ],
                "summary": "List orders",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/types.Order"
                            }
                        }
                    }
                }
            }
        },
        "/api/orders/{id}": {
            "get": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Orders"
                ],
                "summary": "Get an order",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Order ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.Order"
                        }
                    },
                    "404": {
                        "description": "Order not found",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            },
            "patch": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "description": "placed -> preparing|cancelled, preparing -> delivered|cancelled.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Orders"
                ],
                "summary": "Change order status",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Order ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "New status",
                        "name": "status",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.UpdateOrderStatusParams"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.Order"
                        }
                    },
                    "404": {
                        "description": "Order not found",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    },
                    "409": {
                        "description": "Transition not allowed",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            },
            "delete": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "tags": [
                    "Orders"
                ],
                "summary": "Delete an order",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Order ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "404": {
                        "description": "Order not found",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            }
        },
        "/api/weights": {
            "post": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Weight"
                ],
                "summary": "Record weight",
                "parameters": [
                    {
                        "description": "Weight entry",
                        "name": "entry",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.CreateWeightParams"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/types.WeightEntry"
                        }
                    },
                    "400": {
                        "description": "Invalid Input",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            },
            "get": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "description": "Oldest first. Bounds accept RFC3339 or YYYY-MM-DD.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Weight"
                ],
                "summary": "List weight entries",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Lower bound",
                        "name": "from",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Upper bound",
                        "name": "to",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/types.WeightEntry"
                            }
                        }
                    },
                    "400": {
                        "description": "Invalid bounds",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            }
        },
        "/api/weights/{id}": {
            "delete": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "tags": [
                    "Weight"
                ],
                "summary": "Delete a weight entry",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Entry ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/types.Response"
                        }
                    }
                }
            }
        },
        "/api/weights/summary": {
            "get": {
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "description": "Count, first and latest entry, change, range and BMI when height is known.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Weight"
                ],
                "summary": "Weight summary",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.WeightSummary"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "types.ActivityLevel": {
            "type": "string",
            "enum": [
                "sedentary",
                "light",
                "moderate",
                "active",
                "very_active"
            ],
            "x-enum-varnames": [
                "ActivitySedentary",
                "ActivityLight",
                "ActivityModerate",
                "ActivityActive",
                "ActivityVeryActive"
            ]
        },
        "types.ChatRequest": {
            "type": "object",
            "properties": {
                "prompt": {
                    "type": "string",
                    "maxLength": 4000,
                    "example": "What should I eat after a run?"
                }
            }
        },
        "types.ChatResponse": {
            "type": "object",
            "properties": {
                "response": {
                    "type": "string"
                }
            }
        },
        "types.CheckEmailRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string",
                    "example": "jamie@example.com"
                }
            }
        },
        "types.CheckEmailResponse": {
            "type": "object",
            "properties": {
                "exists": {
                    "type": "boolean"
                }
            }
        },
        "types.CreateOrderParams": {
            "type": "object",
            "required": [
                "items"
            ],
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/types.OrderItem"
                    },
                    "minItems": 1,
                    "maxItems": 50
                },
                "notes": {
                    "type": "string",
                    "maxLength": 500
                },
                "restaurant": {
                    "type": "string",
                    "maxLength": 120
                }
            }
        },
        "types.CreateWeightParams": {
            "type": "object",
            "properties": {
                "note": {
                    "type": "string",
                    "maxLength": 200
                },
                "recorded_at": {
                    "type": "string"
                },
                "weight_kg": {
                    "type": "number",
                    "minimum": 20,
                    "maximum": 500
                }
            }
        },
        "types.Goal": {
            "type": "string",
            "enum": [
                "lose",
                "maintain",
                "gain"
            ],
            "x-enum-varnames": [
                "GoalLose",
                "GoalMaintain",
                "GoalGain"
            ]
        },
        "types.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string",
                    "example": "jamie@example.com"
                },
                "password": {
                    "type": "string",
                    "example": "password123"
                }
            }
        },
        "types.LoginResponse": {
            "type": "object",
            "properties": {
                "message": {
                    "type": "string"
                },
                "name": {
                    "type": "string",
                    "example": "Jamie"
                },
                "redirect": {
                    "type": "string",
                    "example": "/dashboard"
                },
                "success": {
                    "type": "boolean"
                }
            }
        },
        "types.Order": {
            "type": "object",
            "properties": {
                "created_at": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/types.OrderItem"
                    }
                },
                "notes": {
                    "type": "string"
                },
                "restaurant": {
                    "type": "string"
                },
                "status": {
                    "allOf": [
                        {
                            "$ref": "#/definitions/types.OrderStatus"
                        }
                    ]
                },
                "total": {
                    "type": "number"
                },
                "updated_at": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                }
            }
        },
        "types.OrderItem": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string",
                    "maxLength": 120
                },
                "price": {
                    "type": "number",
                    "minimum": 0,
                    "maximum": 100000
                },
                "quantity": {
                    "type": "integer",
                    "minimum": 1,
                    "maximum": 99
                }
            }
        },
        "types.OrderStatus": {
            "type": "string",
            "enum": [
                "placed",
                "preparing",
                "delivered",
                "cancelled"
            ],
            "x-enum-varnames": [
                "OrderPlaced",
                "OrderPreparing",
                "OrderDelivered",
                "OrderCancelled"
            ]
        },
        "types.Preferences": {
            "type": "object",
            "properties": {
                "activity_level": {
                    "allOf": [
                        {
                            "$ref": "#/definitions/types.ActivityLevel"
                        }
                    ]
                },
                "age": {
                    "type": "integer"
                },
                "allergies": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "cuisines": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "diet_type": {
                    "type": "string"
                },
                "dislikes": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "gender": {
                    "type": "string"
                },
                "goal": {
                    "allOf": [
                        {
                            "$ref": "#/definitions/types.Goal"
                        }
                    ]
                },
                "height_cm": {
                    "type": "number"
                },
                "updated_at": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                }
            }
        },
        "types.Profile": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "preferences": {
                    "$ref": "#/definitions/types.Preferences"
                },
                "profile_pic": {
                    "type": "string",
                    "example": "static/img/PFPs/default.png"
                }
            }
        },
        "types.ProfilePictureResponse": {
            "type": "object",
            "properties": {
                "profile_pic": {
                    "type": "string",
                    "example": "static/img/PFPs/default.png"
                }
            }
        },
        "types.RecommendationRequest": {
            "type": "object",
            "properties": {
                "extra": {
                    "type": "string",
                    "maxLength": 500
                },
                "meal": {
                    "type": "string",
                    "enum": [
                        "breakfast",
                        "lunch",
                        "dinner",
                        "snack"
                    ]
                }
            }
        },
        "types.Response": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string",
                    "example": "Resource not found"
                },
                "message": {
                    "type": "string",
                    "example": "Operation successful"
                },
                "success": {
                    "type": "boolean",
                    "example": true
                }
            }
        },
        "types.SessionUser": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string",
                    "example": "jamie@example.com"
                },
                "id": {
                    "type": "string",
                    "example": "d290f1ee-6c54-4b01-90e6-d701748f0851"
                },
                "name": {
                    "type": "string",
                    "example": "Jamie"
                }
            }
        },
        "types.SignupRequest": {
            "type": "object",
            "properties": {
                "confirmPassword": {
                    "type": "string",
                    "example": "Str0ngPass1"
                },
                "email": {
                    "type": "string",
                    "example": "jamie@example.com"
                },
                "name": {
                    "type": "string",
                    "example": "Jamie"
                },
                "password": {
                    "type": "string",
                    "example": "Str0ngPass1"
                }
            }
        },
        "types.UpdateOrderStatusParams": {
            "type": "object",
            "required": [
                "status"
            ],
            "properties": {
                "status": {
                    "allOf": [
                        {
                            "$ref": "#/definitions/types.OrderStatus"
                        }
                    ]
                }
            }
        },
        "types.UpdateProfileParams": {
            "type": "object",
            "properties": {
                "activity_level": {
                    "allOf": [
                        {
                            "$ref": "#/definitions/types.ActivityLevel"
                        }
                    ]
                },
                "age": {
                    "type": "integer",
                    "minimum": 1,
                    "maximum": 120
                },
                "allergies": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    },
                    "maxItems": 20
                },
                "cuisines": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    },
                    "maxItems": 20
                },
                "diet_type": {
                    "type": "string",
                    "maxLength": 40
                },
                "dislikes": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    },
                    "maxItems": 20
                },
                "gender": {
                    "type": "string",
                    "maxLength": 30
                },
                "goal": {
                    "allOf": [
                        {
                            "$ref": "#/definitions/types.Goal"
                        }
                    ]
                },
                "height_cm": {
                    "type": "number",
                    "minimum": 50,
                    "maximum": 272
                },
                "name": {
                    "type": "string",
                    "maxLength": 80
                }
            }
        },
        "types.WeightEntry": {
            "type": "object",
            "properties": {
                "created_at": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "note": {
                    "type": "string"
                },
                "recorded_at": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                },
                "weight_kg": {
                    "type": "number"
                }
            }
        },
        "types.WeightSummary": {
            "type": "object",
            "properties": {
                "bmi": {
                    "type": "number"
                },
                "change_kg": {
                    "type": "number"
                },
                "count": {
                    "type": "integer"
                },
                "first": {
                    "$ref": "#/definitions/types.WeightEntry"
                },
                "latest": {
                    "$ref": "#/definitions/types.WeightEntry"
                },
                "max_kg": {
                    "type": "number"
                },
                "min_kg": {
                    "type": "number"
                }
            }
        }
    },
    "securityDefinitions": {
        "SessionCookie": {
            "type": "apiKey",
            "name": "BBAIsession",
            "in": "cookie"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ByteBite API",
	Description:      "Accounts, food preferences, orders, weight tracking and a chat assistant.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
