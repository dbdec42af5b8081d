package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"

	"construction-invoice-api/internal/config"
	"construction-invoice-api/internal/services"
	"construction-invoice-api/pkg/lambda"
)

// Serverless entrypoint for the stateless calculators. Invoice and CIS
// calculations never touch the database, so a warm container mostly
// pays for the tax configuration load.

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

func handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	container, err := lambda.GetConnectionManager().GetContainer(ctx)
	if err != nil {
		return toProxyResponse(errorResponse(500, "Failed to initialize")), nil
	}

	req := &lambda.Request{
		Method:      event.HTTPMethod,
		Path:        event.Path,
		Headers:     event.Headers,
		QueryParams: event.QueryStringParameters,
		Body:        []byte(event.Body),
		PathParams:  event.PathParameters,
	}

	var resp *lambda.Response
	switch {
	case req.Method == "POST" && req.Path == "/api/v1/invoices/calculate":
		resp = handleInvoiceCalculation(ctx, container.InvoiceService, req)
	case req.Method == "POST" && req.Path == "/api/v1/cis/calculate":
		resp = handleCISCalculation(ctx, container.InvoiceService, req)
	case req.Method == "GET" && req.Path == "/api/v1/tax/info":
		resp = handleTaxInfo(&container.Config.Tax)
	default:
		resp = errorResponse(404, "Not found")
	}

	return toProxyResponse(resp), nil
}

func handleInvoiceCalculation(ctx context.Context, service services.InvoiceService, req *lambda.Request) *lambda.Response {
	var calcReq services.CalculateInvoiceRequest
	if err := json.Unmarshal(req.Body, &calcReq); err != nil {
		return errorResponse(400, "Invalid request body")
	}

	totals, err := service.Calculate(ctx, &calcReq)
	if err != nil {
		return errorResponse(400, err.Error())
	}

	return jsonResponse(200, totals)
}

func handleCISCalculation(ctx context.Context, service services.InvoiceService, req *lambda.Request) *lambda.Response {
	var cisReq services.CISCalculationRequest
	if err := json.Unmarshal(req.Body, &cisReq); err != nil {
		return errorResponse(400, "Invalid request body")
	}

	breakdown, err := service.CalculateCIS(ctx, &cisReq)
	if err != nil {
		return errorResponse(400, err.Error())
	}

	return jsonResponse(200, breakdown)
}

func handleTaxInfo(taxConfig *config.TaxSystemConfig) *lambda.Response {
	return jsonResponse(200, map[string]interface{}{
		"vat_modes":                 config.SupportedVATModes(),
		"cis_rates":                 config.SupportedCISRates(),
		"default_vat_mode":          taxConfig.DefaultVATMode,
		"default_cis_rate_percent":  taxConfig.DefaultCISRatePercent,
		"default_retention_percent": taxConfig.DefaultRetentionPercent,
	})
}

func jsonResponse(status int, payload interface{}) *lambda.Response {
	body, err := json.Marshal(payload)
	if err != nil {
		return errorResponse(500, "Failed to encode response")
	}
	return &lambda.Response{
		StatusCode: status,
		Headers:    jsonHeaders,
		Body:       body,
	}
}

func errorResponse(status int, message string) *lambda.Response {
	body, _ := json.Marshal(map[string]string{"error": message})
	return &lambda.Response{
		StatusCode: status,
		Headers:    jsonHeaders,
		Body:       body,
	}
}

func toProxyResponse(resp *lambda.Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}
}

func main() {
	awslambda.Start(handler)
}
