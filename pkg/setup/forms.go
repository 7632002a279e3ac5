package setup

import (
	"fmt"
	"strings"

	"github.com/edgeflare/replica/pkg/connect"
	"github.com/edgeflare/replica/pkg/names"
	"github.com/go-playground/validator"
)

// SourceSetup describes the database the source connector polls.
type SourceSetup struct {
	Hostname     string `json:"dbHostname" mapstructure:"dbHostname" validate:"required,hostname_rfc1123"`
	Name         string `json:"dbName" mapstructure:"dbName" validate:"required"`
	User         string `json:"dbUser" mapstructure:"dbUser" validate:"required"`
	Password     string `json:"dbPassword,omitempty" mapstructure:"dbPassword"`
	Port         int    `json:"dbPort" mapstructure:"dbPort" validate:"min=1,max=65535"`
	PollInterval int    `json:"pollInterval" mapstructure:"pollInterval" validate:"min=1"`
}

// SinkSetup describes a target database table a sink connector writes to.
type SinkSetup struct {
	Hostname string `json:"dbHostname" mapstructure:"dbHostname" validate:"required,hostname_rfc1123"`
	Name     string `json:"dbName" mapstructure:"dbName" validate:"required"`
	Table    string `json:"dbTable" mapstructure:"dbTable" validate:"required"`
	User     string `json:"dbUser" mapstructure:"dbUser" validate:"required"`
	Password string `json:"dbPassword,omitempty" mapstructure:"dbPassword"`
	Port     int    `json:"dbPort" mapstructure:"dbPort" validate:"min=1,max=65535"`
}

// TargetAssignment lists the databases an account replicates to. Targets are host/db labels.
type TargetAssignment struct {
	Targets   []string `json:"targets" validate:"dive,required"`
	AccountID int      `json:"accountId" validate:"min=1"`
}

func DefaultSource() SourceSetup {
	return SourceSetup{
		Hostname:     "postgres1",
		Port:         connect.DefaultPort,
		Name:         "source",
		User:         "db_user",
		PollInterval: 500,
	}
}

func DefaultSink() SinkSetup {
	return SinkSetup{
		Hostname: "postgres2",
		Port:     connect.DefaultPort,
		Name:     "sink",
		Table:    "account",
		User:     "db_user",
	}
}

func (s SourceSetup) Database() connect.Database {
	return connect.Database{Host: s.Hostname, Port: s.Port, Name: s.Name, User: s.User, Password: s.Password}
}

func (s SinkSetup) Database() connect.Database {
	return connect.Database{Host: s.Hostname, Port: s.Port, Name: s.Name, User: s.User, Password: s.Password}
}

// ConnectorName is the name shared by the sink's connector, KSQL table and topic.
func (s SinkSetup) ConnectorName() string {
	return names.Sink(s.Hostname, s.Name, s.Table)
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, tag := range e.Fields {
		parts = append(parts, f+" ("+tag+")")
	}
	return "invalid input: " + strings.Join(sortStrings(parts), ", ")
}

func validate(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}
