package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Severidades aceitas nos alertas.
const (
	SeveridadeInfo    = "info"
	SeveridadeAviso   = "warning"
	SeveridadeCritica = "critical"
)

// Notifier envia alertas para canais externos.
type Notifier interface {
	Notify(ctx context.Context, msg AlertMessage) error
}

// AlertMessage é um alerta da varredura. Campos vira a tabela do anexo.
type AlertMessage struct {
	Title    string
	Text     string
	Severity string
	Campos   []Campo
}

type Campo struct {
	Nome  string
	Valor string
}

// SlackNotifier publica alertas num incoming webhook do Slack.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier devolve nil quando não há webhook, o que desliga os alertas.
func NewSlackNotifier(webhookURL string) Notifier {
	if webhookURL == "" {
		return nil
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

type slackPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func (s *SlackNotifier) Notify(ctx context.Context, msg AlertMessage) error {
	body, err := json.Marshal(montarPayload(msg, time.Now()))
	if err != nil {
		return fmt.Errorf("slack: montar payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: enviar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack: status %d", resp.StatusCode)
	}
	return nil
}

func montarPayload(msg AlertMessage, agora time.Time) slackPayload {
	p := slackPayload{Text: textoSlack(msg)}
	if len(msg.Campos) == 0 {
		return p
	}
	att := slackAttachment{
		Color:  corSlack(msg.Severity),
		Footer: "biblioteca/monitor",
		TS:     agora.Unix(),
	}
	for _, c := range msg.Campos {
		att.Fields = append(att.Fields, slackField{Title: c.Nome, Value: c.Valor, Short: true})
	}
	p.Attachments = []slackAttachment{att}
	return p
}

func textoSlack(msg AlertMessage) string {
	emoji := ":information_source:"
	switch msg.Severity {
	case SeveridadeAviso:
		emoji = ":warning:"
	case SeveridadeCritica:
		emoji = ":rotating_light:"
	}
	if msg.Title == "" {
		return emoji + " " + msg.Text
	}
	return emoji + " *" + msg.Title + "*\n" + msg.Text
}

func corSlack(severidade string) string {
	switch severidade {
	case SeveridadeAviso:
		return "warning"
	case SeveridadeCritica:
		return "danger"
	default:
		return "good"
	}
}
