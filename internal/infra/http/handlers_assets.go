package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"assetguard/internal/domain"
	"assetguard/internal/usecase"

	"github.com/gin-gonic/gin"
)

const scanSessionHeader = "X-Scan-Session"

type hotspotInput struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	ActionType  string  `json:"action_type"`
	ActionValue string  `json:"action_value"`
}

type createAssetRequest struct {
	Kind          string              `json:"kind"`
	OwnerRef      string              `json:"owner_ref"`
	Payload       string              `json:"payload"`
	DynamicTarget string              `json:"dynamic_target,omitempty"`
	FileRef       string              `json:"file_ref,omitempty"`
	Stego         *domain.StegoConfig `json:"stego,omitempty"`
	Hotspots      []hotspotInput      `json:"hotspots,omitempty"`
}

type hotspotResponse struct {
	ID string `json:"id"`
	hotspotInput
}

type assetResponse struct {
	ID            string            `json:"id"`
	Kind          string            `json:"kind"`
	OwnerRef      string            `json:"owner_ref"`
	Payload       string            `json:"payload"`
	DynamicTarget string            `json:"dynamic_target,omitempty"`
	FileRef       string            `json:"file_ref,omitempty"`
	Status        string            `json:"status"`
	RiskScore     *int              `json:"risk_score,omitempty"`
	StegoMethod   string            `json:"stego_method,omitempty"`
	Hotspots      []hotspotResponse `json:"hotspots,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type transitionResponse struct {
	ID    string    `json:"id"`
	From  string    `json:"from"`
	To    string    `json:"to"`
	Cause string    `json:"cause"`
	Actor string    `json:"actor"`
	At    time.Time `json:"at"`
}

type hashLogResponse struct {
	LogID       string    `json:"log_id"`
	ContentHash string    `json:"content_hash"`
	FileHash    string    `json:"file_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

type scanRequest struct {
	ObservedDestination string            `json:"observed_destination"`
	ObservedMeta        map[string]string `json:"observed_meta,omitempty"`
}

type scanResponse struct {
	TamperSuspected bool           `json:"tamper_suspected"`
	Reason          string         `json:"reason,omitempty"`
	Reasons         []string       `json:"reasons,omitempty"`
	Status          string         `json:"status"`
	RedirectTo      string         `json:"redirect_to"`
	ScanEventID     string         `json:"scan_event_id"`
	RiskLevel       string         `json:"risk_level"`
	Risk            *riskResponse  `json:"risk,omitempty"`
	RiskError       *errorResponse `json:"risk_error,omitempty"`
}

type riskRequest struct {
	Payload     string `json:"payload"`
	PayloadType string `json:"payload_type"`
}

type riskResponse struct {
	Score         int      `json:"score"`
	Level         string   `json:"level"`
	ThreatTypes   []string `json:"threat_types"`
	Explanation   string   `json:"explanation,omitempty"`
	StaticIssues  []string `json:"static_issues,omitempty"`
	ExternalScore int      `json:"external_score"`
	Capped        bool     `json:"capped"`
}

func (s *Server) handleCreateAsset(c *gin.Context) {
	var req createAssetRequest
	if !bindJSON(c, &req) {
		return
	}
	in := usecase.CreateAssetInput{
		Kind:          domain.AssetKind(strings.TrimSpace(req.Kind)),
		OwnerRef:      req.OwnerRef,
		Payload:       req.Payload,
		DynamicTarget: req.DynamicTarget,
		FileRef:       req.FileRef,
		Stego:         req.Stego,
	}
	for _, h := range req.Hotspots {
		in.Hotspots = append(in.Hotspots, domain.Hotspot{
			X:           h.X,
			Y:           h.Y,
			Width:       h.Width,
			Height:      h.Height,
			Label:       h.Label,
			Description: h.Description,
			ActionType:  h.ActionType,
			ActionValue: h.ActionValue,
		})
	}
	asset, err := s.deps.Assets.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	_, hotspots, err := s.deps.Assets.Get(c.Request.Context(), asset.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildAssetResponse(asset, hotspots))
}

func (s *Server) handleGetAsset(c *gin.Context) {
	asset, hotspots, err := s.deps.Assets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildAssetResponse(asset, hotspots))
}

func (s *Server) handleAssetTransitions(c *gin.Context) {
	transitions, err := s.deps.Assets.Transitions(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]transitionResponse, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, transitionResponse{
			ID:    t.ID,
			From:  string(t.From),
			To:    string(t.To),
			Cause: t.Cause,
			Actor: t.Actor,
			At:    t.At,
		})
	}
	c.JSON(http.StatusOK, gin.H{"transitions": out})
}

func (s *Server) handleAssetHashLog(c *gin.Context) {
	entries, err := s.deps.Assets.HashLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]hashLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, hashLogResponse{
			LogID:       e.LogID,
			ContentHash: e.ContentHash,
			FileHash:    e.FileHash,
			CreatedAt:   e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

func (s *Server) handlePublishAsset(c *gin.Context) {
	asset, err := s.deps.Assets.Publish(c.Request.Context(), c.Param("id"), actorFrom(c, ""))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildAssetResponse(asset, nil))
}

func (s *Server) handleRevokeAsset(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	var req revokeRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	asset, err := s.deps.Assets.Revoke(c.Request.Context(), c.Param("id"), req.Reason, adminActor)
	if err != nil {
		writeError(c, err)
		return
	}
	s.deps.Metrics.Revocation("asset", "admin")
	c.JSON(http.StatusOK, buildAssetResponse(asset, nil))
}

func (s *Server) handleFinalizeAsset(c *gin.Context) {
	result, err := s.deps.Finalizer.Finalize(c.Request.Context(), c.Param("id"), actorFrom(c, ""))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, hashLogResponse{
		LogID:       result.LogID,
		ContentHash: result.ContentHash,
		FileHash:    result.FileHash,
		CreatedAt:   result.CreatedAt,
	})
}

func (s *Server) handleScanAsset(c *gin.Context) {
	session := c.GetHeader(scanSessionHeader)
	if !s.enforceRateLimit(c, "scan") {
		return
	}
	var req scanRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := s.deps.Scans.Scan(c.Request.Context(), usecase.TamperCheckRequest{
		AssetID:             c.Param("id"),
		ObservedDestination: req.ObservedDestination,
		ObservedMeta:        req.ObservedMeta,
		SessionToken:        session,
	})
	if err != nil && report.Tamper.ScanEventID == "" {
		writeError(c, err)
		return
	}

	s.deps.Metrics.Scan(report.Tamper.TamperSuspected, report.RiskLevel)
	if report.Tamper.TamperSuspected && report.Tamper.NewStatus == domain.AssetStatusRevoked {
		s.deps.Metrics.Revocation("asset", "tamper")
	}
	out := buildScanResponse(report)
	if err != nil {
		// The scan was recorded but a hidden-layer check could not run.
		writeErrorDetails(c, err, map[string]any{"scan": out})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleRiskScore(c *gin.Context) {
	var req riskRequest
	if !bindJSON(c, &req) {
		return
	}
	payloadType := domain.PayloadType(strings.TrimSpace(req.PayloadType))
	if payloadType == "" {
		payloadType = domain.PayloadTypeURL
	}
	assessment, err := s.deps.Risk.Score(c.Request.Context(), req.Payload, payloadType)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			writeErrorDetails(c, err, map[string]any{"risk_level": string(domain.RiskLevelUnknown)})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildRiskResponse(assessment))
}

func buildAssetResponse(asset domain.Asset, hotspots []domain.Hotspot) assetResponse {
	out := assetResponse{
		ID:            asset.ID,
		Kind:          string(asset.Kind),
		OwnerRef:      asset.OwnerRef,
		Payload:       asset.Payload,
		DynamicTarget: asset.DynamicTarget,
		FileRef:       asset.FileRef,
		Status:        string(asset.Status),
		RiskScore:     asset.RiskScore,
		CreatedAt:     asset.CreatedAt,
		UpdatedAt:     asset.UpdatedAt,
	}
	if asset.Stego != nil {
		out.StegoMethod = asset.Stego.Method
	}
	for _, h := range hotspots {
		out.Hotspots = append(out.Hotspots, hotspotResponse{
			ID: h.ID,
			hotspotInput: hotspotInput{
				X:           h.X,
				Y:           h.Y,
				Width:       h.Width,
				Height:      h.Height,
				Label:       h.Label,
				Description: h.Description,
				ActionType:  h.ActionType,
				ActionValue: h.ActionValue,
			},
		})
	}
	return out
}

func buildScanResponse(report usecase.ScanReport) scanResponse {
	out := scanResponse{
		TamperSuspected: report.Tamper.TamperSuspected,
		Reason:          report.Tamper.Reason,
		Reasons:         report.Tamper.Reasons,
		Status:          string(report.Tamper.NewStatus),
		RedirectTo:      report.Tamper.RedirectTo,
		ScanEventID:     report.Tamper.ScanEventID,
		RiskLevel:       string(report.RiskLevel),
	}
	if report.Risk != nil {
		risk := buildRiskResponse(*report.Risk)
		out.Risk = &risk
	}
	if report.RiskError != nil {
		_, code := classify(report.RiskError)
		out.RiskError = &errorResponse{Code: code, Message: report.RiskError.Error()}
	}
	return out
}

func buildRiskResponse(a domain.RiskAssessment) riskResponse {
	threats := a.ThreatTypes
	if threats == nil {
		threats = []string{}
	}
	return riskResponse{
		Score:         a.Score,
		Level:         string(a.Level),
		ThreatTypes:   threats,
		Explanation:   a.Explanation,
		StaticIssues:  a.Static.Issues,
		ExternalScore: a.ExternalScore,
		Capped:        a.Capped,
	}
}
