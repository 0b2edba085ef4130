package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go-biz-agent/internal/apperr"
	"go-biz-agent/internal/database"
	"go-biz-agent/internal/inventory"
	"go-biz-agent/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// RunAgent answers a business question for one project. The model gets
// read-only tools over the catalog, the stock ledger and order totals;
// it never mutates anything.
func RunAgent(projectID uint, userMessage string, apiKey string) (string, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-2.0-flash-001")

	today := time.Now().Format("2006-01-02")

	systemPrompt := fmt.Sprintf(`SYSTEM: Today is %s. You are a business assistant for one project.

	RULES:
	1. STOCK: If a user asks about a product's price, availability or warehouse stock:
	   - Call 'check_inventory' to get the per-warehouse stock list.
	   - Read the JSON to find the specific item and answer the user.
	2. HISTORY: If a user asks why stock changed or what happened to a product,
	   call 'get_stock_history' with the product id from 'check_inventory'.
	3. ORDERS: If the user asks for revenue or order counts, use 'get_order_report'.

	USER: %s`, today, userMessage)

	model.Tools = []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "check_inventory",
					Description: "Get the full product list with per-warehouse stock. Use this to find ANY product details like ID, Name, Price, or stock per warehouse.",
				},
				{
					Name:        "get_stock_history",
					Description: "Get the most recent stock ledger entries for a product by its ID",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"product_id": {Type: genai.TypeInteger, Description: "ID of the product"},
						},
						Required: []string{"product_id"},
					},
				},
				{
					Name:        "get_order_report",
					Description: "Get total order revenue and count for a date range.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
							"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
						},
						Required: []string{"start_date", "end_date"},
					},
				},
			},
		},
	}

	session := model.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(systemPrompt))
	if err != nil {
		return "", err
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {
			switch funcCall.Name {
			case "check_inventory":
				return executeCheckInventory(ctx, session, projectID)
			case "get_stock_history":
				return executeStockHistory(ctx, session, projectID, funcCall), nil
			case "get_order_report":
				return executeOrderReport(ctx, session, projectID, funcCall), nil
			}
		}
	}

	return printResponse(resp), nil
}

// --- HELPER FUNCTIONS ---

func executeCheckInventory(ctx context.Context, session *genai.ChatSession, projectID uint) (string, error) {
	var products []models.Product
	database.DB.Preload("Stocks.Warehouse").
		Where("project_id = ?", projectID).Find(&products)

	type stockLine struct {
		Warehouse string `json:"warehouse"`
		Quantity  int    `json:"quantity"`
	}
	type simpleProduct struct {
		ID     uint        `json:"id"`
		Name   string      `json:"name"`
		Price  float64     `json:"price"`
		Stocks []stockLine `json:"stocks"`
	}
	var simpleList []simpleProduct
	for _, p := range products {
		sp := simpleProduct{ID: p.ID, Name: p.Name, Price: p.Price}
		for _, s := range p.Stocks {
			sp.Stocks = append(sp.Stocks, stockLine{Warehouse: s.Warehouse.Name, Quantity: s.Quantity})
		}
		simpleList = append(simpleList, sp)
	}

	jsonBytes, _ := json.Marshal(simpleList)

	toolResp := genai.FunctionResponse{
		Name:     "check_inventory",
		Response: map[string]interface{}{"inventory": string(jsonBytes)},
	}

	finalResp, err := session.SendMessage(ctx, toolResp)
	if err != nil {
		return "", err
	}
	return handleRecursiveToolCalls(ctx, session, projectID, finalResp), nil
}

// handleRecursiveToolCalls lets the model follow up an inventory read
// with a history lookup in the same conversation
func handleRecursiveToolCalls(ctx context.Context, session *genai.ChatSession, projectID uint, resp *genai.GenerateContentResponse) string {
	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {
			if funcCall.Name == "get_stock_history" {
				return executeStockHistory(ctx, session, projectID, funcCall)
			}
		}
	}
	return printResponse(resp)
}

// projectStockHistory reads the recent ledger entries for a product,
// refusing product ids that live outside the caller's project.
func projectStockHistory(db *gorm.DB, projectID, productID uint) ([]models.StockMovement, error) {
	var product models.Product
	err := db.Where("id = ? AND project_id = ?", productID, projectID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("product %d not found", productID)
	}
	if err != nil {
		return nil, err
	}

	movements, _, err := inventory.MovementsByProduct(db, productID, 1, 10, nil)
	return movements, err
}

func executeStockHistory(ctx context.Context, session *genai.ChatSession, projectID uint, funcCall genai.FunctionCall) string {
	args := funcCall.Args
	productID := uint(args["product_id"].(float64))

	movements, err := projectStockHistory(database.DB, projectID, productID)
	if err != nil {
		if apperr.StatusOf(err) == http.StatusNotFound {
			return fmt.Sprintf("I couldn't find product %d in this project.", productID)
		}
		return "Error reading the stock ledger."
	}

	type entry struct {
		MovementID string `json:"movement_id"`
		Type       string `json:"type"`
		Delta      int    `json:"delta"`
		NewStock   int    `json:"new_stock"`
		Date       string `json:"date"`
	}
	var history []entry
	for _, m := range movements {
		history = append(history, entry{
			MovementID: m.MovementID,
			Type:       m.MovementType,
			Delta:      m.Quantity,
			NewStock:   m.NewStock,
			Date:       m.CreatedAt.Format("2006-01-02"),
		})
	}
	jsonBytes, _ := json.Marshal(history)

	finalResp, _ := session.SendMessage(ctx, genai.FunctionResponse{
		Name:     "get_stock_history",
		Response: map[string]interface{}{"history": string(jsonBytes)},
	})
	return printResponse(finalResp)
}

func executeOrderReport(ctx context.Context, session *genai.ChatSession, projectID uint, funcCall genai.FunctionCall) string {
	args := funcCall.Args
	startStr := args["start_date"].(string)
	endStr := args["end_date"].(string)

	start, err1 := time.Parse("2006-01-02", startStr)
	end, err2 := time.Parse("2006-01-02", endStr)

	if err1 != nil || err2 != nil {
		return "Error: Dates must be in YYYY-MM-DD format."
	}
	end = end.Add(23*time.Hour + 59*time.Minute)

	report, err := database.GetOrderReport(database.DB, projectID, start, end)
	if err != nil {
		return "Error calculating the order report."
	}

	finalResp, _ := session.SendMessage(ctx, genai.FunctionResponse{
		Name: "get_order_report",
		Response: map[string]interface{}{
			"revenue":     report.TotalRevenue,
			"order_count": report.TotalCount,
		},
	})
	return printResponse(finalResp)
}

func printResponse(resp *genai.GenerateContentResponse) string {
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I completed the action."
}
