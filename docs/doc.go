// Package docs provides generated OpenAPI documentation.
//
// Wikibook API
//
//	@title			Wikibook API
//	@version		1.0
//	@description	Desk server API for searching the wiki, submitting books to the PDF service and managing the library.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/wikibook
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http
package docs

//go:generate swag init -g ../cmd/wikibook/serve.go -o ./swagger --parseDependency --parseInternal
