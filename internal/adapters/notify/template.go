package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/mikey/phish-screen/internal/core"
	"github.com/mikey/phish-screen/internal/ports"
)

// AlertSubject is the subject of every alert email
const AlertSubject = "⚠️ ALERTA: Ingeniería Social Detectada - Control Parental"

const (
	colorDanger  = "#dc2626"
	colorWarning = "#f59e0b"
	colorSafe    = "#10b981"
)

//go:embed alert.html
var alertHTML string

var alertTemplate = template.Must(template.New("alert").Parse(alertHTML))

type alertView struct {
	Color   template.CSS
	Level   string
	Type    string
	Scoring int
	Reason  string
}

// RiskColor returns the banner colour for a score
func RiskColor(score int) string {
	switch core.Band(score) {
	case core.BandDanger:
		return colorDanger
	case core.BandWarning:
		return colorWarning
	default:
		return colorSafe
	}
}

// RenderAlert renders the HTML body of an alert email. Values are escaped.
func RenderAlert(alert ports.EmailAlert) (string, error) {
	view := alertView{
		Color:   template.CSS(RiskColor(alert.Scoring)),
		Level:   "INGENIERÍA SOCIAL DETECTADA",
		Type:    strings.TrimSpace(alert.Type),
		Scoring: alert.Scoring,
		Reason:  strings.TrimSpace(alert.Reason),
	}
	if view.Type == "" {
		view.Type = "desconocido"
	}
	if view.Reason == "" {
		view.Reason = "No se proporcionó una razón específica"
	}

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render alert template: %w", err)
	}
	return buf.String(), nil
}
