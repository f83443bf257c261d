// Package docs holds the generated OpenAPI documentation for the MediScan
// server. swagger.json is written to docs/swagger and served at /swagger.json.
//
// MediScan API
//
//	@title			MediScan API
//	@version		1.0
//	@description	Tablet photo analysis: section extraction, severity badges and rendered reports.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/mediscan
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/mediscan/serve.go -o ./swagger --parseDependency --parseInternal
