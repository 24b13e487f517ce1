package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/orchestrator"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/output"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/store"
)

// diagnoseTimeout bounds one diagnose_leaf call including persistence.
const diagnoseTimeout = 2 * time.Minute

type handlers struct {
	engine *orchestrator.Engine
}

// diagnoseResponse is the diagnose_leaf payload.
type diagnoseResponse struct {
	Diagnosis    *model.DiagnosisResult `json:"diagnosis"`
	HealthScore  int                    `json:"health_score"`
	AIContext    *output.AIContext      `json:"ai_context"`
	ScanID       int64                  `json:"scan_id,omitempty"`
	PersistError string                 `json:"persist_error,omitempty"`
}

// handleDiagnoseLeaf runs the pipeline on a file, persisting when user_id is set.
func (h *handlers) handleDiagnoseLeaf(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, diagnoseTimeout)
	defer cancel()

	args := getArgs(request)
	path := stringArg(args, "image_path", "")
	if path == "" {
		return errResult("image_path is required"), nil
	}

	resp := diagnoseResponse{}
	if userID, ok := intArg(args, "user_id"); ok {
		r, scanID, err := h.engine.DiagnoseAndPersist(ctx, path, userID, orchestrator.ScanMeta{
			Notes: stringArg(args, "notes", ""),
		})
		resp.Diagnosis, resp.ScanID = r, scanID
		if err != nil {
			resp.PersistError = err.Error()
		}
	} else {
		resp.Diagnosis = h.engine.Diagnose(ctx, path)
	}
	resp.HealthScore = model.ComputeHealthScore(resp.Diagnosis)
	resp.AIContext = output.GenerateAIPrompt(resp.Diagnosis)

	return jsonResult(resp)
}

// handleTreatmentPlan plans treatment for a disease or tier label.
func (h *handlers) handleTreatmentPlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	label := stringArg(args, "disease", "")
	if label == "" {
		return errResult("disease is required"), nil
	}
	cat := h.engine.Catalog()
	stage := model.ResolveStage(cat, label)
	if stage == model.StageUnknown {
		return errResult(fmt.Sprintf("unknown disease or tier %q. Use list_diseases to see valid names.", label)), nil
	}

	nutrients, err := model.ParseNutrients(stringArg(args, "nutrients", ""))
	if err != nil {
		return errResult(err.Error()), nil
	}
	quality := model.QualityMetrics{QualityLevel: model.QualityLevel(stringArg(args, "quality", string(model.QualityGood)))}

	return jsonResult(struct {
		Disease string              `json:"disease"`
		Stage   model.Stage         `json:"stage"`
		Plan    model.TreatmentPlan `json:"treatment_plan"`
	}{label, stage, model.PlanTreatment(cat, label, nutrients, quality)})
}

// handlePredictProgression forecasts from a tier or disease name.
func (h *handlers) handlePredictProgression(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	label := stringArg(args, "stage", "")
	if label == "" {
		return errResult("stage is required"), nil
	}
	stage := model.ResolveStage(h.engine.Catalog(), label)
	if stage == model.StageUnknown {
		return errResult(fmt.Sprintf("unknown stage %q", label)), nil
	}
	return jsonResult(model.PredictProgression(stage))
}

// handleListDiseases returns the catalog in class order.
func (h *handlers) handleListDiseases(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type entry struct {
		ID         string      `json:"id"`
		Name       string      `json:"name"`
		Tier       model.Stage `json:"tier"`
		Symptoms   []string    `json:"symptoms"`
		Treatments []string    `json:"treatments"`
	}
	var entries []entry
	for _, d := range h.engine.Catalog().Diseases() {
		entries = append(entries, entry{d.ID, d.Name, d.Tier, d.Symptoms, d.Treatments})
	}
	return jsonResult(entries)
}

// handleExplainPattern provides a field explanation for a pattern or nutrient flag.
func (h *handlers) handleExplainPattern(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	id := stringArg(args, "pattern_id", "")
	if id == "" {
		return errResult("pattern_id is required"), nil
	}

	desc, ok := patternExplanations[strings.ToLower(id)]
	if !ok {
		ids := make([]string, 0, len(patternExplanations))
		for k := range patternExplanations {
			ids = append(ids, k)
		}
		sort.Strings(ids)
		return newTextResult(fmt.Sprintf(
			"No explanation for pattern '%s'. Known ids: %s. "+
				"Run 'diagnose_leaf' and check disease_patterns and nutrient_analysis for detected ids.",
			id, strings.Join(ids, ", "),
		)), nil
	}
	return newTextResult(desc), nil
}

// handleScanStatistics returns repository statistics.
func (h *handlers) handleScanStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo := h.engine.Repository()
	if repo == nil {
		return errResult("scan history is not configured"), nil
	}
	args := getArgs(request)

	resp := struct {
		Statistics store.Statistics `json:"statistics"`
		Recent     []store.Scan     `json:"recent_scans,omitempty"`
	}{}

	var userID *int64
	if id, ok := intArg(args, "user_id"); ok {
		userID = &id
	}
	stats, err := repo.Statistics(ctx, userID)
	if err != nil {
		return errResult(fmt.Sprintf("statistics failed: %v", err)), nil
	}
	resp.Statistics = stats

	if userID != nil {
		limit, ok := intArg(args, "limit")
		if !ok || limit <= 0 {
			limit = 10
		}
		scans, err := repo.UserScans(ctx, *userID, int(limit))
		if err != nil {
			return errResult(fmt.Sprintf("recent scans failed: %v", err)), nil
		}
		resp.Recent = scans
	}
	return jsonResult(resp)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return newTextResult(string(jsonData)), nil
}

// getArgs safely extracts the arguments map from a CallToolRequest.
// Returns an empty map if Arguments is nil or not a map.
func getArgs(request mcp.CallToolRequest) map[string]interface{} {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

// stringArg extracts a string argument with a default value.
func stringArg(args map[string]interface{}, key, defaultVal string) string {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultVal
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return defaultVal
	}
	return s
}

// intArg extracts a whole-number argument. JSON numbers arrive as float64.
func intArg(args map[string]interface{}, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

// newTextResult creates a successful MCP tool result with text content.
func newTextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}

// errResult creates an MCP tool error result (IsError=true).
// This is returned as a tool-level error, not a transport-level JSON-RPC error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: msg,
			},
		},
	}
}

var patternExplanations = map[string]string{
	"yellowing": `**Yellowing Pattern**
A large share of the leaf falls in the yellow hue band (H 20-30, bright and saturated).
**Possible Causes:**
- Lethal yellowing phytoplasma (starts on older fronds, spreads to younger ones)
- Potassium or magnesium deficiency
- Natural senescence of the oldest fronds
**Field Checks:**
- Look for premature nut drop and blackened inflorescences (lethal yellowing).
- Check whether yellowing starts at leaflet tips (potassium) or leaves a green midrib (magnesium).`,

	"root_wilt": `**Root Wilt Pattern**
Many pixels are dull and desaturated (low saturation, mid brightness), typical of flaccid, ribbed leaflets.
**Possible Causes:**
- Root (wilt) disease, phytoplasma spread by lace bugs and plant hoppers
- Drought stress or waterlogging
**Field Checks:**
- Bend a leaflet: root wilt leaflets curve inwards and feel limp.
- Inspect roots for decay and check soil moisture.`,

	"bud_rot": `**Bud Rot Pattern**
Dark reddish-brown tissue (hue 0-20, low brightness) is present.
**Possible Causes:**
- Phytophthora bud rot after prolonged rain
- Rhinoceros beetle damage letting pathogens into the crown
**Field Checks:**
- Check the spear leaf: it pulls out easily and smells foul with bud rot.
- Act quickly; bud rot kills the palm once the growing point is lost.`,

	"leaf_spot": `**Leaf Spot Pattern**
Small very dark areas (brightness below 80) are scattered across the leaf.
**Possible Causes:**
- Fungal leaf spot or leaf blight (Pestalotiopsis, Helminthosporium)
- Anthracnose lesions
- Shadows or dirt on the lens
**Field Checks:**
- Confirm spots have a yellow halo on the actual leaf.
- Retake the photo in even light if the spots follow shadows.`,

	"nitrogen": `**Nitrogen Deficiency Flag**
More than 30% of the leaf is yellow.
**Field Checks:**
- Uniform pale yellowing across the canopy points to nitrogen.
- Apply nitrogen-rich fertilizer and mulch with organic matter.`,

	"phosphorus": `**Phosphorus Deficiency Flag**
Purple tones cover more than 10% of the leaf.
**Field Checks:**
- Look for purplish or bronze discoloration on older leaves and stunted growth.
- Apply rock phosphate or a phosphorus fertilizer.`,

	"potassium": `**Potassium Deficiency Flag**
Yellowing concentrates on the leaf edges.
**Field Checks:**
- Yellow-orange spots and necrotic leaflet tips on older fronds are typical.
- Apply muriate of potash; potassium is the most demanded nutrient in coconut.`,

	"magnesium": `**Magnesium Deficiency Flag**
Moderate yellowing (20-50% of the leaf).
**Field Checks:**
- Orange-yellow bands on older leaflets with a green midrib point to magnesium.
- Apply Epsom salt (magnesium sulphate).`,

	"iron": `**Iron Deficiency Flag**
Yellowing covers more than 40% of the leaf.
**Field Checks:**
- Interveinal chlorosis on the youngest leaves points to iron, often on alkaline soils.
- Apply chelated iron and check soil pH.`,
}
