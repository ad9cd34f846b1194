package models

// MConfig Structure
type MConfig struct {
	Name          string         `yaml:"name"`
	Host          string         `yaml:"host"`
	Port          int            `yaml:"port"`
	LogLevel      string         `yaml:"log_level"`
	TickQueueSize int            `yaml:"tick_queue_size"`
	Gateway       MGatewayConfig `yaml:"gateway"`
	Storage       MStorageConfig `yaml:"storage"`
	Risk          MRiskConfig    `yaml:"risk"`
}

type MGatewayConfig struct {
	Host                    string `yaml:"host"`
	Port                    int    `yaml:"port"`
	ClientID                int    `yaml:"client_id"`
	ConnectTimeoutSeconds   int    `yaml:"connect_timeout_seconds"`
	SubscribeTimeoutSeconds int    `yaml:"subscribe_timeout_seconds"`
	OrderTimeoutSeconds     int    `yaml:"order_timeout_seconds"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MRiskConfig struct {
	Budget    float64 `yaml:"budget"`     // currency units risked per order
	LotSize   int     `yaml:"lot_size"`   // quantities are rounded down to this lot
	FloorRisk float64 `yaml:"floor_risk"` // substituted when per-unit risk is not positive
}
