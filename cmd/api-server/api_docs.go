package main

// @title           PenX API
// @version         1.0
// @description     Backend of the PenX author and reader platform: books, reader accounts, comments, reviews and analytics.

// @contact.name   API Support

// @license.name   Apache 2.0
// @license.url    http://www.apache.org/licenses/LICENSE-2.0.html

// @host            localhost:5000
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer {token}' for authentication
