package signal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"gridbot/internal/config"
	"gridbot/internal/models"
)

func testSignalConfig() config.SignalConfig {
	return config.SignalConfig{
		MaxPriceDeviationPct: 1,
		MaxAge:               60 * time.Second,
		HistoryLimit:         1000,
	}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// TestValidateSignature проверяет HMAC подпись вебхука
func TestValidateSignature(t *testing.T) {
	body := []byte(`{"symbol":"BTCUSDT","action":"buy"}`)
	secret := "test-webhook-secret"

	tests := []struct {
		name      string
		secret    string
		signature string
		want      bool
	}{
		{
			name:      "valid signature",
			secret:    secret,
			signature: sign(secret, body),
			want:      true,
		},
		{
			name:      "uppercase hex accepted",
			secret:    secret,
			signature: "" + toUpper(sign(secret, body)),
			want:      true,
		},
		{
			name:      "wrong signature",
			secret:    secret,
			signature: sign("other-secret", body),
			want:      false,
		},
		{
			name:      "missing signature",
			secret:    secret,
			signature: "",
			want:      false,
		},
		{
			name:      "no secret skips check",
			secret:    "",
			signature: "",
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.secret, testSignalConfig())
			got := h.ValidateSignature(body, tt.signature)
			if got != tt.want {
				t.Errorf("ValidateSignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func toUpper(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// TestProcess_Normalization проверяет нормализацию символа и действия
func TestProcess_Normalization(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantSymbol string
		wantAction string
	}{
		{
			name:       "full payload",
			body:       `{"symbol":"BTCUSDT","action":"buy","price":97000}`,
			wantSymbol: "BTCUSDT",
			wantAction: "buy",
		},
		{
			name:       "base currency gets quote appended",
			body:       `{"symbol":"mnt","action":"long"}`,
			wantSymbol: "MNTUSDT",
			wantAction: "long",
		},
		{
			name:       "ticker field fallback",
			body:       `{"ticker":"DOGEUSDT","action":"close"}`,
			wantSymbol: "DOGEUSDT",
			wantAction: "close",
		},
		{
			name:       "action inferred from message buy",
			body:       `{"symbol":"BTCUSDT","message":"Strong BUY breakout"}`,
			wantSymbol: "BTCUSDT",
			wantAction: "buy",
		},
		{
			name:       "unknown action defaults to sell",
			body:       `{"symbol":"BTCUSDT","action":"hodl","message":"top is in"}`,
			wantSymbol: "BTCUSDT",
			wantAction: "sell",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler("", testSignalConfig())
			sig, err := h.Process([]byte(tt.body), "")
			if err != nil {
				t.Fatalf("Process() error: %v", err)
			}
			if sig.Symbol != tt.wantSymbol {
				t.Errorf("Symbol = %s, want %s", sig.Symbol, tt.wantSymbol)
			}
			if sig.Action != tt.wantAction {
				t.Errorf("Action = %s, want %s", sig.Action, tt.wantAction)
			}
			if !sig.Validated {
				t.Error("signal should be validated")
			}
		})
	}
}

// TestProcess_ZoneTag проверяет перенос контекстной зоны алерта
func TestProcess_ZoneTag(t *testing.T) {
	h := NewHandler("", testSignalConfig())

	sig, err := h.Process([]byte(`{"symbol":"MNTUSDT","action":"buy","price":1.08,"zone":" Support "}`), "")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if sig.Zone != "support" {
		t.Errorf("Zone = %q, want support", sig.Zone)
	}

	// Без зоны в алерте поле остается пустым
	sig, err = h.Process([]byte(`{"symbol":"MNTUSDT","action":"sell"}`), "")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if sig.Zone != "" {
		t.Errorf("Zone = %q, want empty when alert carries none", sig.Zone)
	}
}

// TestProcess_Errors проверяет обработку мусорных запросов
func TestProcess_Errors(t *testing.T) {
	secret := "test-webhook-secret"
	h := NewHandler(secret, testSignalConfig())

	tests := []struct {
		name      string
		body      string
		signature func(body []byte) string
		wantErr   error
	}{
		{
			name:      "bad signature",
			body:      `{"symbol":"BTCUSDT","action":"buy"}`,
			signature: func(b []byte) string { return "deadbeef" },
			wantErr:   ErrInvalidSignature,
		},
		{
			name:      "empty body",
			body:      "",
			signature: func(b []byte) string { return sign(secret, b) },
			wantErr:   ErrEmptyPayload,
		},
		{
			name:      "broken json",
			body:      `{"symbol":`,
			signature: func(b []byte) string { return sign(secret, b) },
			wantErr:   ErrInvalidPayload,
		},
		{
			name:      "missing symbol",
			body:      `{"action":"buy"}`,
			signature: func(b []byte) string { return sign(secret, b) },
			wantErr:   ErrMissingSymbol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(tt.body)
			_, err := h.Process(body, tt.signature(body))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Process() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Мусор не попадает в историю
	if got := len(h.History(0)); got != 0 {
		t.Errorf("history length = %d, want 0 after rejected requests", got)
	}
}

// TestShouldExecute проверяет условия исполнения сигнала
func TestShouldExecute(t *testing.T) {
	h := NewHandler("", testSignalConfig())

	tests := []struct {
		name        string
		sig         *models.Signal
		marketPrice float64
		want        bool
	}{
		{
			name: "fresh signal with matching price",
			sig: &models.Signal{
				Validated:  true,
				Price:      97000,
				ReceivedAt: time.Now(),
			},
			marketPrice: 97100,
			want:        true,
		},
		{
			name: "no price skips deviation check",
			sig: &models.Signal{
				Validated:  true,
				ReceivedAt: time.Now(),
			},
			marketPrice: 97100,
			want:        true,
		},
		{
			name: "price deviates beyond threshold",
			sig: &models.Signal{
				Validated:  true,
				Price:      90000,
				ReceivedAt: time.Now(),
			},
			marketPrice: 97100,
			want:        false,
		},
		{
			name: "stale signal",
			sig: &models.Signal{
				Validated:  true,
				Price:      97000,
				ReceivedAt: time.Now().Add(-2 * time.Minute),
			},
			marketPrice: 97100,
			want:        false,
		},
		{
			name: "not validated",
			sig: &models.Signal{
				Validated:  false,
				ReceivedAt: time.Now(),
			},
			marketPrice: 97100,
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := h.ShouldExecute(tt.sig, tt.marketPrice)
			if got != tt.want {
				t.Errorf("ShouldExecute() = %v (%s), want %v", got, reason, tt.want)
			}
		})
	}
}

// TestGridActionFor проверяет трансляцию сигналов в действия над сеткой
func TestGridActionFor(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{action: models.SignalActionBuy, want: models.GridActionResume},
		{action: models.SignalActionLong, want: models.GridActionResume},
		{action: models.SignalActionSell, want: models.GridActionPause},
		{action: models.SignalActionShort, want: models.GridActionPause},
		{action: models.SignalActionClose, want: models.GridActionStop},
		{action: "hodl", want: models.GridActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			if got := GridActionFor(tt.action); got != tt.want {
				t.Errorf("GridActionFor(%s) = %s, want %s", tt.action, got, tt.want)
			}
		})
	}
}

// TestHistory_Ring проверяет ограничение истории сигналов
func TestHistory_Ring(t *testing.T) {
	cfg := testSignalConfig()
	cfg.HistoryLimit = 10
	h := NewHandler("", cfg)

	for i := 0; i < 25; i++ {
		body := []byte(fmt.Sprintf(`{"symbol":"BTCUSDT","action":"buy","price":%d}`, 97000+i))
		if _, err := h.Process(body, ""); err != nil {
			t.Fatalf("Process() error: %v", err)
		}
	}

	history := h.History(0)
	if len(history) != 10 {
		t.Fatalf("history length = %d, want 10", len(history))
	}
	// В кольце остаются последние сигналы
	if history[len(history)-1].Price != 97024 {
		t.Errorf("latest price = %v, want 97024", history[len(history)-1].Price)
	}
	if history[0].Price != 97015 {
		t.Errorf("oldest kept price = %v, want 97015", history[0].Price)
	}

	// Лимит выборки
	if got := len(h.History(3)); got != 3 {
		t.Errorf("History(3) length = %d, want 3", got)
	}
}

// TestStats проверяет агрегированную статистику
func TestStats(t *testing.T) {
	h := NewHandler("", testSignalConfig())

	h.Process([]byte(`{"symbol":"BTCUSDT","action":"buy"}`), "")
	h.Process([]byte(`{"symbol":"MNTUSDT","action":"sell"}`), "")
	h.Process([]byte(`{"symbol":"DOGEUSDT","action":"buy"}`), "")
	h.MarkExecuted()

	stats := h.Stats()
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.Validated != 3 {
		t.Errorf("Validated = %d, want 3", stats.Validated)
	}
	if stats.Executed != 1 {
		t.Errorf("Executed = %d, want 1", stats.Executed)
	}
	if stats.ByAction["buy"] != 2 || stats.ByAction["sell"] != 1 {
		t.Errorf("ByAction = %v, want buy:2 sell:1", stats.ByAction)
	}
	if stats.LastSignal == nil {
		t.Error("LastSignal should be set")
	}
}
