// Package domain provides core business rules for the leads bounded context:
// the canonical stage set, the stage catalog resolver and the transition rules.
package domain

// Stage is one of the fixed, ordered canonical pipeline stages.
// The zero value is not a stage; Catalog.Resolve never returns it.
type Stage uint8

const (
	StagePending Stage = iota + 1
	StageAssigned
	StageContacted
	StageInProgress
	StageCallBack
	StageAppointmentPending
	StageAppointmentDone
	StageNoAnswer
	StageFollowUp
	StageWon
	StageOtherProduct
	StageLost
	StageNotInterested
	StageDisqualified
	StageUncategorized
)

type stageInfo struct {
	key      string
	label    string
	terminal bool
	aliases  []string
}

// builtinStages is indexed by Stage-1 and also defines board column order.
var builtinStages = []stageInfo{
	{key: "pending", label: "Pendiente", aliases: []string{"pending", "nuevo", "nueva", "new", "sin asignar", "por asignar", "unassigned"}},
	{key: "assigned", label: "Asignado", aliases: []string{"assigned", "asignada", "asignados"}},
	{key: "contacted", label: "Contactado", aliases: []string{"contacted", "contactada", "contactados"}},
	{key: "in_progress", label: "En proceso", aliases: []string{"in progress", "en progreso", "en curso", "proceso", "working"}},
	{key: "call_back", label: "Volver a llamar", aliases: []string{"call back", "callback", "rellamar", "llamar luego", "llamar despues", "volver llamar"}},
	{key: "appointment_pending", label: "Cita pendiente", aliases: []string{"appointment pending", "cita agendada", "agendado", "agendada", "cita programada"}},
	{key: "appointment_done", label: "Cita realizada", aliases: []string{"appointment done", "cita hecha", "cita completada", "visitado", "visita realizada"}},
	{key: "no_answer", label: "No contesta", aliases: []string{"no answer", "sin respuesta", "no responde", "no contesto", "buzon"}},
	{key: "follow_up", label: "Seguimiento", aliases: []string{"follow up", "followup", "en seguimiento", "seguimiento comercial"}},
	{key: "won", label: "Ganado", terminal: true, aliases: []string{"won", "venta", "venta cerrada", "vendido", "cerrado ganado", "closed won"}},
	{key: "other_product", label: "Otro producto", aliases: []string{"other product", "otro servicio", "interesado en otro producto"}},
	{key: "lost", label: "Perdido", terminal: true, aliases: []string{"lost", "cerrado perdido", "closed lost", "venta perdida"}},
	{key: "not_interested", label: "No interesado", aliases: []string{"not interested", "no le interesa", "sin interes", "no interesada"}},
	{key: "disqualified", label: "Descartado", aliases: []string{"disqualified", "no califica", "no calificado", "descartada", "invalido", "dato errado"}},
	{key: "uncategorized", label: "Sin categoría", aliases: []string{"uncategorized", "otros", "otro", "sin estado"}},
}

// Stages returns every canonical stage in board order.
func Stages() []Stage {
	out := make([]Stage, len(builtinStages))
	for i := range builtinStages {
		out[i] = Stage(i + 1)
	}
	return out
}

// Valid reports whether s is one of the canonical stages.
func (s Stage) Valid() bool {
	return s >= StagePending && s <= StageUncategorized
}

func (s Stage) info() stageInfo {
	if !s.Valid() {
		return builtinStages[StageUncategorized-1]
	}
	return builtinStages[s-1]
}

// Key is the canonical key, used as the stable identifier on the wire and in
// the database.
func (s Stage) Key() string { return s.info().key }

// Label is the built-in display label.
func (s Stage) Label() string { return s.info().label }

// IsTerminal reports whether the stage locks ownership (Won and Lost).
func (s Stage) IsTerminal() bool { return s.info().terminal }

// Position is the 1-based board column position.
func (s Stage) Position() int {
	if !s.Valid() {
		return int(StageUncategorized)
	}
	return int(s)
}

func (s Stage) String() string { return s.Key() }

// StageFromKey returns the stage whose canonical key is key.
func StageFromKey(key string) (Stage, bool) {
	for i, info := range builtinStages {
		if info.key == key {
			return Stage(i + 1), true
		}
	}
	return 0, false
}
