package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Rol is the field specialty of an enrolled person.
type Rol string

const (
	RolCaminante        Rol = "Caminante"
	RolRescatista       Rol = "Rescatista"
	RolPrimerosAuxilios Rol = "Primeros Auxilios"
	RolComunicaciones   Rol = "Comunicaciones"
	RolConductor        Rol = "Conductor"
	RolLogistica        Rol = "Logistica"
	RolBinomioK9        Rol = "Binomio K9"
)

var ValidRoles = []Rol{
	RolCaminante,
	RolRescatista,
	RolPrimerosAuxilios,
	RolComunicaciones,
	RolConductor,
	RolLogistica,
	RolBinomioK9,
}

type Sexo string

const (
	SexoMasculino Sexo = "masculino"
	SexoFemenino  Sexo = "femenino"
)

type GrupoSanguineo string

const (
	GrupoAPos        GrupoSanguineo = "A+"
	GrupoANeg        GrupoSanguineo = "A-"
	GrupoBPos        GrupoSanguineo = "B+"
	GrupoBNeg        GrupoSanguineo = "B-"
	GrupoABPos       GrupoSanguineo = "AB+"
	GrupoABNeg       GrupoSanguineo = "AB-"
	GrupoOPos        GrupoSanguineo = "O+"
	GrupoONeg        GrupoSanguineo = "O-"
	GrupoDesconocido GrupoSanguineo = "Desconocido"
)

type Estado string

const (
	EstadoActivo   Estado = "activo"
	EstadoInactivo Estado = "inactivo"
)

// PersonRecord is one enrolled person, leader or agent alike. Field names
// follow the wire contract of the dashboard backend.
type PersonRecord struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	IncidentID     string         `db:"incident_id" json:"incident_id"`
	CredentialID   *uuid.UUID     `db:"credential_id" json:"credential_id,omitempty"`
	Nombre         string         `db:"nombre" json:"nombre"`
	Apellido       string         `db:"apellido" json:"apellido"`
	DNI            string         `db:"dni" json:"dni"`
	Telefono       string         `db:"telefono" json:"telefono"`
	Institucion    string         `db:"institucion" json:"institucion"`
	Rol            Rol            `db:"rol" json:"rol"`
	Sexo           Sexo           `db:"sexo" json:"sexo"`
	Alergias       string         `db:"alergias" json:"alergias"`
	GrupoSanguineo GrupoSanguineo `db:"grupo_sanguineo" json:"grupo_sanguineo"`
	Estado         Estado         `db:"estado" json:"estado"`
	IsLeader       bool           `db:"is_leader" json:"is_leader"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// PersonInput is the enrollment form payload for a leader or an agent.
// Binding stays permissive: required-field checks are done by Validate so
// the first missing field is reported in declaration order, not whichever
// the binder trips on.
type PersonInput struct {
	Nombre         string `json:"nombre"`
	Apellido       string `json:"apellido"`
	DNI            string `json:"dni"`
	Telefono       string `json:"telefono"`
	Institucion    string `json:"institucion"`
	Rol            string `json:"rol"`
	Sexo           string `json:"sexo"`
	Alergias       string `json:"alergias"`
	GrupoSanguineo string `json:"grupo_sanguineo"`
}

type personField struct {
	label string
	value func(*PersonInput) string
}

// Declaration order decides which missing field gets reported.
var personFields = []personField{
	{"nombre", func(p *PersonInput) string { return p.Nombre }},
	{"apellido", func(p *PersonInput) string { return p.Apellido }},
	{"dni", func(p *PersonInput) string { return p.DNI }},
	{"telefono", func(p *PersonInput) string { return p.Telefono }},
	{"institucion", func(p *PersonInput) string { return p.Institucion }},
	{"rol", func(p *PersonInput) string { return p.Rol }},
	{"alergias", func(p *PersonInput) string { return p.Alergias }},
	{"grupo_sanguineo", func(p *PersonInput) string { return p.GrupoSanguineo }},
}

// Validate checks every required field and reports the first missing one as a
// single human-readable message. Institucion is required only for leaders;
// agents inherit it from their leader.
func (p *PersonInput) Validate(requireInstitucion bool) error {
	for _, f := range personFields {
		if f.label == "institucion" && !requireInstitucion {
			continue
		}
		if f.value(p) == "" {
			return fmt.Errorf("el campo %s es obligatorio", f.label)
		}
	}
	return nil
}

// ToRecord copies the input into a PersonRecord. ID, incident/credential
// linkage and estado are set by the caller.
func (p *PersonInput) ToRecord() *PersonRecord {
	return &PersonRecord{
		Nombre:         p.Nombre,
		Apellido:       p.Apellido,
		DNI:            p.DNI,
		Telefono:       p.Telefono,
		Institucion:    p.Institucion,
		Rol:            Rol(p.Rol),
		Sexo:           Sexo(p.Sexo),
		Alergias:       p.Alergias,
		GrupoSanguineo: GrupoSanguineo(p.GrupoSanguineo),
	}
}
