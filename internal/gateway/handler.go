package gateway

import (
	"context"

	"github.com/gin-gonic/gin"

	"remote-screen/internal/discovery"
	"remote-screen/internal/service"
	"remote-screen/pkg/errno"
	"remote-screen/pkg/pairing"
	"remote-screen/pkg/wallet/types"
)

// Confirmer is the part of *service.ConfirmService the bridge needs.
type Confirmer interface {
	FindServer(ctx context.Context) (discovery.ServerInfo, error)
	Confirm(ctx context.Context) (*service.Outcome, error)
}

// Handler serves the UI host.
type Handler struct {
	svc     Confirmer
	session pairing.SessionConfig
}

func NewHandler(svc Confirmer, session pairing.SessionConfig) *Handler {
	return &Handler{svc: svc, session: session}
}

// ServerData is the located control panel.
type ServerData struct {
	GUID        string `json:"guid"`
	Address     string `json:"address"`
	Fingerprint string `json:"fingerprint"`
}

// ProbeData is one chain probe as shown to the UI.
type ProbeData struct {
	Chain  types.Chain         `json:"chain"`
	Status service.ProbeStatus `json:"status"`
	Error  string              `json:"error,omitempty"`
}

// ConfirmData is a decoded transaction ready for display.
type ConfirmData struct {
	Chain     types.Chain    `json:"chain,omitempty"`
	Text      string         `json:"text,omitempty"`
	Details   string         `json:"details,omitempty"`
	Summary   []types.Field  `json:"summary,omitempty"`
	Countdown int            `json:"countdown"`
	Warnings  []string       `json:"warnings,omitempty"`
	Metadata  types.Metadata `json:"metadata"`
	Probes    []ProbeData    `json:"probes"`
}

func confirmData(out *service.Outcome) ConfirmData {
	data := ConfirmData{Probes: []ProbeData{}}
	if out == nil {
		return data
	}
	for _, p := range out.Probes {
		pd := ProbeData{Chain: p.Chain, Status: p.Status}
		if p.Status == service.ProbeFailed && p.Err != nil {
			_, pd.Error = errno.Decode(p.Err)
		}
		data.Probes = append(data.Probes, pd)
	}
	data.Metadata = out.Metadata
	if tx := out.Transaction; tx != nil {
		data.Chain = tx.Chain
		data.Text = tx.Text()
		if tx.HasDetails() {
			data.Details = tx.DetailText()
		}
		data.Summary = tx.Summary
		data.Countdown = tx.Countdown
		data.Warnings = tx.Warnings
	}
	return data
}

// HealthCheck godoc
// @Summary Check service health
// @Description Get the current health status of the bridge
// @Tags system
// @Produce  json
// @Success 200 {object} Response
// @Router /health [get]
func (h *Handler) HealthCheck(c *gin.Context) {
	Success(c, gin.H{
		"status":  "UP",
		"service": "remote-screen",
		"guid":    h.session.GUID,
	})
}

// FindServer 查找配对的控制面板
// @Summary Locate the paired control panel
// @Description Browses the local network for the panel advertising the paired guid
// @Tags Session
// @Produce json
// @Success 200 {object} Response{data=ServerData}
// @Router /api/v1/server [get]
func (h *Handler) FindServer(c *gin.Context) {
	info, err := h.svc.FindServer(c.Request.Context())
	if err != nil {
		Error(c, err, nil)
		return
	}
	fp, _ := h.session.Fingerprint()
	Success(c, ServerData{GUID: info.Instance, Address: info.Address(), Fingerprint: fp})
}

// Confirm 读取并解码待确认交易
// @Summary Fetch and decode the pending transaction
// @Description Runs one confirmation attempt: discovery, both tunnels, chain probe and decoding
// @Tags Session
// @Produce json
// @Success 200 {object} Response{data=ConfirmData}
// @Router /api/v1/confirm [post]
func (h *Handler) Confirm(c *gin.Context) {
	out, err := h.svc.Confirm(c.Request.Context())
	if err != nil {
		// 取消也返回错误码，由 UI 忽略
		Error(c, err, confirmData(out))
		return
	}
	Success(c, confirmData(out))
}
