package handlers

// @title Construction Invoice API
// @version 1.0
// @description Invoice calculation and abuse protection for UK construction businesses: VAT (standard, domestic reverse charge, exempt), CIS deductions and retention handling.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/your-org/construction-invoice-api
// @contact.email support@construction-invoice.example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8081
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name invoices
// @tag.description Invoice calculation and management operations

// @tag.name tax
// @tag.description VAT and CIS tax operations

// @tag.name security
// @tag.description Security audit log inspection

// @tag.name auth
// @tag.description Authentication operations
