package bot

import (
	"errors"
	"testing"

	"gridbot/internal/models"
)

// TestCanTransition_ValidTransitions проверяет все валидные переходы между статусами
func TestCanTransition_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{
			name: "stopped → running (start grid)",
			from: models.GridStatusStopped,
			to:   models.GridStatusRunning,
			want: true,
		},
		{
			name: "running → paused (pause grid)",
			from: models.GridStatusRunning,
			to:   models.GridStatusPaused,
			want: true,
		},
		{
			name: "running → stopped (stop loss / kill)",
			from: models.GridStatusRunning,
			to:   models.GridStatusStopped,
			want: true,
		},
		{
			name: "paused → running (resume grid)",
			from: models.GridStatusPaused,
			to:   models.GridStatusRunning,
			want: true,
		},
		{
			name: "paused → stopped (stop from pause)",
			from: models.GridStatusPaused,
			to:   models.GridStatusStopped,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanTransition(tt.from, tt.to)
			if got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

// TestCanTransition_InvalidTransitions проверяет, что невалидные переходы отклоняются
func TestCanTransition_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
	}{
		// Из stopped нельзя сразу в paused - нечего ставить на паузу
		{name: "stopped → paused (invalid)", from: models.GridStatusStopped, to: models.GridStatusPaused},

		// Переходы в себя
		{name: "stopped → stopped (invalid)", from: models.GridStatusStopped, to: models.GridStatusStopped},
		{name: "running → running (invalid)", from: models.GridStatusRunning, to: models.GridStatusRunning},
		{name: "paused → paused (invalid)", from: models.GridStatusPaused, to: models.GridStatusPaused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanTransition(tt.from, tt.to)
			if got != false {
				t.Errorf("CanTransition(%s, %s) = %v, want false (invalid transition)", tt.from, tt.to, got)
			}
		})
	}
}

// TestCanTransition_UnknownState проверяет поведение при неизвестном статусе
func TestCanTransition_UnknownState(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
	}{
		{name: "unknown → running", from: "UNKNOWN", to: models.GridStatusRunning},
		{name: "running → unknown", from: models.GridStatusRunning, to: "UNKNOWN"},
		{name: "empty → running", from: "", to: models.GridStatusRunning},
		{name: "uppercase RUNNING → paused", from: "RUNNING", to: models.GridStatusPaused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanTransition(tt.from, tt.to)
			if got != false {
				t.Errorf("CanTransition(%s, %s) = %v, want false for unknown states", tt.from, tt.to, got)
			}
		})
	}
}

// TestStateInfo_AllStates проверяет, что все статусы имеют корректное описание
func TestStateInfo_AllStates(t *testing.T) {
	tests := []struct {
		state    string
		expected string
	}{
		{
			state:    models.GridStatusStopped,
			expected: "Сетка остановлена, ордера отменены",
		},
		{
			state:    models.GridStatusRunning,
			expected: "Сетка активна (торговый цикл работает)",
		},
		{
			state:    models.GridStatusPaused,
			expected: "Сетка на паузе, ордера отменены, уровни сохранены",
		},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			got := StateInfo(tt.state)
			if got != tt.expected {
				t.Errorf("StateInfo(%s) = %q, want %q", tt.state, got, tt.expected)
			}
		})
	}
}

// TestStateInfo_UnknownState проверяет обработку неизвестного статуса
func TestStateInfo_UnknownState(t *testing.T) {
	for _, state := range []string{"UNKNOWN", "", "RUNNING", "some_random_state"} {
		t.Run(state, func(t *testing.T) {
			got := StateInfo(state)
			expected := "Неизвестное состояние"
			if got != expected {
				t.Errorf("StateInfo(%q) = %q, want %q", state, got, expected)
			}
		})
	}
}

// TestIsActive проверяет определение активных статусов
func TestIsActive(t *testing.T) {
	tests := []struct {
		state string
		want  bool
	}{
		{state: models.GridStatusRunning, want: true},
		{state: models.GridStatusPaused, want: false},
		{state: models.GridStatusStopped, want: false},
		{state: "UNKNOWN", want: false},
		{state: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			got := IsActive(tt.state)
			if got != tt.want {
				t.Errorf("IsActive(%s) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

// TestValidTransitions_Completeness проверяет полноту таблицы переходов
func TestValidTransitions_Completeness(t *testing.T) {
	allStates := []string{
		models.GridStatusStopped,
		models.GridStatusRunning,
		models.GridStatusPaused,
	}

	// Проверяем, что все статусы есть в ValidTransitions
	for _, state := range allStates {
		if _, ok := ValidTransitions[state]; !ok {
			t.Errorf("State %s is not defined in ValidTransitions", state)
		}
	}

	// Проверяем, что нет лишних статусов в ValidTransitions
	for state := range ValidTransitions {
		found := false
		for _, s := range allStates {
			if s == state {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Unknown state %s in ValidTransitions", state)
		}
	}
}

// TestValidTransitions_NoSelfLoops проверяет отсутствие переходов в себя
func TestValidTransitions_NoSelfLoops(t *testing.T) {
	for from, tos := range ValidTransitions {
		for _, to := range tos {
			if from == to {
				t.Errorf("Self-loop detected: %s → %s", from, to)
			}
		}
	}
}

// TestStateFlow_NormalGridCycle проверяет полный цикл жизни сетки
func TestStateFlow_NormalGridCycle(t *testing.T) {
	// Нормальный цикл: stopped → running → paused → running → stopped
	cycle := []string{
		models.GridStatusStopped,
		models.GridStatusRunning,
		models.GridStatusPaused,
		models.GridStatusRunning,
		models.GridStatusStopped,
	}

	for i := 0; i < len(cycle)-1; i++ {
		from := cycle[i]
		to := cycle[i+1]
		if !CanTransition(from, to) {
			t.Errorf("Grid lifecycle broken: cannot transition from %s to %s", from, to)
		}
	}
}

// TestTryTransition проверяет переход статуса с проверкой допустимости
func TestTryTransition(t *testing.T) {
	tests := []struct {
		name      string
		from      string
		to        string
		wantErr   bool
		wantState string
	}{
		{
			name:      "valid stopped → running",
			from:      models.GridStatusStopped,
			to:        models.GridStatusRunning,
			wantErr:   false,
			wantState: models.GridStatusRunning,
		},
		{
			name:      "valid running → paused",
			from:      models.GridStatusRunning,
			to:        models.GridStatusPaused,
			wantErr:   false,
			wantState: models.GridStatusPaused,
		},
		{
			name:      "invalid stopped → paused",
			from:      models.GridStatusStopped,
			to:        models.GridStatusPaused,
			wantErr:   true,
			wantState: models.GridStatusStopped, // статус не должен измениться
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runtime := &models.GridRuntime{Symbol: "BTCUSDT", Status: tt.from}
			err := TryTransition(runtime, tt.to)

			if (err != nil) != tt.wantErr {
				t.Errorf("TryTransition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if runtime.Status != tt.wantState {
				t.Errorf("TryTransition() state = %s, want %s", runtime.Status, tt.wantState)
			}
			if tt.wantErr {
				var transErr *StateTransitionError
				if !errors.As(err, &transErr) {
					t.Errorf("TryTransition() error should be StateTransitionError, got %T", err)
				}
			}
		})
	}
}

// TestForceTransition проверяет принудительный переход
func TestForceTransition(t *testing.T) {
	runtime := &models.GridRuntime{Symbol: "BTCUSDT", Status: models.GridStatusStopped}

	// ForceTransition должен работать даже для невалидных переходов
	ForceTransition(runtime, models.GridStatusPaused) // stopped → paused невалиден

	if runtime.Status != models.GridStatusPaused {
		t.Errorf("ForceTransition() state = %s, want %s", runtime.Status, models.GridStatusPaused)
	}
}

// BenchmarkCanTransition измеряет производительность проверки переходов
func BenchmarkCanTransition(b *testing.B) {
	for i := 0; i < b.N; i++ {
		CanTransition(models.GridStatusRunning, models.GridStatusPaused)
	}
}
