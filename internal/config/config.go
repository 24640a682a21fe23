package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Turno describes one configured meal shift.
type Turno struct {
	ID          string `yaml:"id"`
	Nombre      string `yaml:"nombre"`
	Descripcion string `yaml:"descripcion"`
	HoraInicio  string `yaml:"hora_inicio"` // HH:MM, shift opens for reservations
	HoraLimite  string `yaml:"hora_limite"` // HH:MM, reservation cutoff
	HoraReceso  string `yaml:"hora_receso"` // HH:MM, food pickup time
}

// Mensajes is the user-facing message catalogue. All strings are shown to
// students verbatim.
type Mensajes struct {
	ReservaExitosa   string `yaml:"reserva_exitosa"`
	ReservaCerrada   string `yaml:"reserva_cerrada"`
	DiaFeriado       string `yaml:"dia_feriado"`
	DiaDesactivado   string `yaml:"dia_desactivado"`
	ErrorConexion    string `yaml:"error_conexion"`
	CamposRequeridos string `yaml:"campos_requeridos"`
	SinMenu          string `yaml:"sin_menu"`
	FinSemana        string `yaml:"fin_semana"`
	CodigoInvalido   string `yaml:"codigo_invalido"`
}

type Config struct {
	API struct {
		BaseURL         string  `yaml:"base_url"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
		Burst           int     `yaml:"burst"`
	} `yaml:"api"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
	} `yaml:"sheets"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Database struct {
		Path   string `yaml:"path"`
		Backup struct {
			Enabled       bool   `yaml:"enabled"`
			Dir           string `yaml:"dir"`
			IntervalHours int    `yaml:"interval_hours"`
			RetentionDays int    `yaml:"retention_days"`
		} `yaml:"backup"`
	} `yaml:"database"`

	Carrito struct {
		MaxSelecciones int `yaml:"max_selecciones"`
		GuardWindowMS  int `yaml:"guard_window_ms"`
	} `yaml:"carrito"`

	Turnos       []Turno  `yaml:"turnos"`
	TurnoDefault string   `yaml:"turno_default"`
	Moneda       string   `yaml:"moneda"`
	DiasHabiles  []string `yaml:"dias_habiles"`

	Mensajes Mensajes `yaml:"mensajes"`

	Report struct {
		Dir string `yaml:"dir"`
	} `yaml:"report"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if cfg.API.BaseURL == "" && !cfg.Sheets.Enabled {
		return nil, fmt.Errorf("config: api.base_url is required unless sheets.enabled")
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 30
	}
	if c.API.RatePerSecond <= 0 {
		c.API.RatePerSecond = 5
	}
	if c.API.Burst <= 0 {
		c.API.Burst = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/comedor.db"
	}
	if c.Database.Backup.Dir == "" {
		c.Database.Backup.Dir = "data/backups"
	}
	if c.Database.Backup.IntervalHours <= 0 {
		c.Database.Backup.IntervalHours = 24
	}
	if c.Database.Backup.RetentionDays <= 0 {
		c.Database.Backup.RetentionDays = 14
	}
	if c.Carrito.MaxSelecciones <= 0 {
		c.Carrito.MaxSelecciones = 3
	}
	if c.Carrito.GuardWindowMS < 300 || c.Carrito.GuardWindowMS > 1000 {
		c.Carrito.GuardWindowMS = 500
	}
	if len(c.Turnos) == 0 {
		c.Turnos = []Turno{
			{ID: "MANANA", Nombre: "Mañana", Descripcion: "Receso de mañana",
				HoraInicio: "06:00", HoraLimite: "09:00", HoraReceso: "10:00"},
			{ID: "TARDE", Nombre: "Tarde", Descripcion: "Receso de tarde",
				HoraInicio: "10:00", HoraLimite: "16:30", HoraReceso: "17:30"},
		}
	}
	if c.TurnoDefault == "" {
		c.TurnoDefault = c.Turnos[0].ID
	}
	if c.Moneda == "" {
		c.Moneda = "S/"
	}
	if len(c.DiasHabiles) == 0 {
		c.DiasHabiles = []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes"}
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "reports"
	}

	m := &c.Mensajes
	if m.ReservaExitosa == "" {
		m.ReservaExitosa = "¡Reserva confirmada! No olvides recoger tu comida a la hora indicada."
	}
	if m.ReservaCerrada == "" {
		m.ReservaCerrada = "Lo sentimos, ya no se aceptan reservas para este turno."
	}
	if m.DiaFeriado == "" {
		m.DiaFeriado = "Hoy es feriado, no hay servicio de comedor"
	}
	if m.DiaDesactivado == "" {
		m.DiaDesactivado = "El servicio no está disponible hoy"
	}
	if m.ErrorConexion == "" {
		m.ErrorConexion = "Error de conexión con el servidor. Por favor, intenta nuevamente."
	}
	if m.CamposRequeridos == "" {
		m.CamposRequeridos = "Por favor, completa todos los campos obligatorios."
	}
	if m.SinMenu == "" {
		m.SinMenu = "Selecciona tu menú para continuar."
	}
	if m.FinSemana == "" {
		m.FinSemana = "El servicio de comedor no está disponible los fines de semana."
	}
	if m.CodigoInvalido == "" {
		m.CodigoInvalido = "El código de estudiante debe tener entre 5 y 10 caracteres."
	}
}

// TurnoPorID looks up a configured shift.
func (c *Config) TurnoPorID(id string) (Turno, bool) {
	for _, t := range c.Turnos {
		if t.ID == id {
			return t, true
		}
	}
	return Turno{}, false
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) GuardWindow() time.Duration {
	return time.Duration(c.Carrito.GuardWindowMS) * time.Millisecond
}

var nombresDias = [...]string{
	"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado",
}

// NombreDia returns the Spanish weekday name for t.
func NombreDia(t time.Time) string {
	return nombresDias[int(t.Weekday())]
}

// EsDiaHabil reports whether the cafeteria operates on the given day.
func (c *Config) EsDiaHabil(t time.Time) bool {
	dia := NombreDia(t)
	for _, d := range c.DiasHabiles {
		if d == dia {
			return true
		}
	}
	return false
}
