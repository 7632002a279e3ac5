package connect

// Config is a connector configuration. Kafka Connect reports every value as a string.
type Config map[string]string

// TaskRef identifies a connector task.
type TaskRef struct {
	Connector string `json:"connector"`
	Task      int    `json:"task"`
}

// ConnectorInfo is the "info" expansion of GET /connectors.
type ConnectorInfo struct {
	Config Config    `json:"config"`
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Tasks  []TaskRef `json:"tasks"`
}

// TaskStatus is the state of a single task.
type TaskStatus struct {
	State    string `json:"state"`
	WorkerID string `json:"worker_id"`
	Trace    string `json:"trace,omitempty"`
	ID       int    `json:"id"`
}

// ConnectorStatus is the "status" expansion of GET /connectors.
type ConnectorStatus struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Connector struct {
		State    string `json:"state"`
		WorkerID string `json:"worker_id"`
		Trace    string `json:"trace,omitempty"`
	} `json:"connector"`
	Tasks []TaskStatus `json:"tasks"`
}

// ConnectorInfoStatus is one entry of GET /connectors?expand=info&expand=status.
type ConnectorInfoStatus struct {
	Info   ConnectorInfo   `json:"info"`
	Status ConnectorStatus `json:"status"`
}

// Health summarizes a connector state for display.
type Health int

const (
	HealthFailure     Health = -1
	HealthUnknown     Health = 0
	HealthOperational Health = 1
	HealthPaused      Health = 2
)

func (h Health) String() string {
	switch h {
	case HealthFailure:
		return "failure"
	case HealthOperational:
		return "operational"
	case HealthPaused:
		return "paused"
	default:
		return "unknown"
	}
}

func (h Health) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// HealthOf maps a connector state to a Health.
func HealthOf(state string) Health {
	switch state {
	case "RUNNING":
		return HealthOperational
	case "PAUSED":
		return HealthPaused
	case "FAILED":
		return HealthFailure
	default:
		return HealthUnknown
	}
}

// Health of the connector itself. A failed task marks the whole connector failed.
func (s ConnectorInfoStatus) Health() Health {
	for _, t := range s.Status.Tasks {
		if t.State == "FAILED" {
			return HealthFailure
		}
	}
	return HealthOf(s.Status.Connector.State)
}
