package blocks

import "sync"

// Registry is the catalog of block types available to the editor.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]BlockDefinition
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]BlockDefinition{}}
}

// Register adds or replaces a definition. New types are appended to the
// catalog order; replacements keep their position.
func (r *Registry) Register(def BlockDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Type]; !exists {
		r.order = append(r.order, def.Type)
	}
	r.defs[def.Type] = def
}

// DefinitionFor looks up a block type. A miss is a real condition: flows
// saved under an older catalog can reference types that no longer exist.
func (r *Registry) DefinitionFor(blockType string) (BlockDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[blockType]
	return def, ok
}

// All returns every definition in catalog order.
func (r *Registry) All() []BlockDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]BlockDefinition, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.defs[t])
	}
	return out
}

// Categories returns the distinct categories in order of first appearance.
func (r *Registry) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, def := range r.All() {
		if !seen[def.Category] {
			seen[def.Category] = true
			out = append(out, def.Category)
		}
	}
	return out
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the built-in catalog.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistry()
		for _, def := range builtins() {
			defaultReg.Register(def)
		}
	})
	return defaultReg
}

func builtins() []BlockDefinition {
	return []BlockDefinition{
		// ---- Fluxo ----
		{
			Type: "inicio", Label: "Início", Icon: "play", Category: "fluxo", Color: "#22c55e",
			ConfigFields: []FieldDescriptor{
				{Key: "mensagemBoasVindas", Label: "Mensagem de boas-vindas", Kind: KindTextarea},
			},
		},
		{
			Type: "encerrar", Label: "Encerrar", Icon: "stop", Category: "fluxo", Color: "#ef4444",
			ConfigFields: []FieldDescriptor{
				{Key: "mensagemFinal", Label: "Mensagem de encerramento", Kind: KindTextarea},
			},
		},
		{
			Type: "aguardar", Label: "Aguardar resposta", Icon: "hourglass", Category: "fluxo", Color: "#a855f7",
			ConfigFields: []FieldDescriptor{
				{Key: "variavel", Label: "Salvar resposta em", Kind: KindText, Required: true},
				{Key: "tempoLimite", Label: "Tempo limite (HH:MM)", Kind: KindTime},
			},
		},

		// ---- Mensagens ----
		{
			Type: "mensagem", Label: "Mensagem", Icon: "message", Category: "mensagens", Color: "#3b82f6",
			ConfigFields: []FieldDescriptor{
				{Key: "texto", Label: "Texto", Kind: KindTextarea, Required: true},
			},
		},
		{
			Type: "menu", Label: "Menu", Icon: "list", Category: "mensagens", Color: "#0ea5e9",
			ConfigFields: []FieldDescriptor{
				{Key: "mensagem", Label: "Mensagem", Kind: KindTextarea, Required: true},
				{Key: "opcoes", Label: "Opções", Kind: KindOptions, Required: true},
			},
		},
		{
			Type: "arquivo", Label: "Enviar arquivo", Icon: "paperclip", Category: "mensagens", Color: "#64748b",
			ConfigFields: []FieldDescriptor{
				{Key: "arquivo", Label: "Arquivo", Kind: KindFile, Required: true, Accept: ".pdf,.jpg,.jpeg,.png,.mp4"},
				{Key: "legenda", Label: "Legenda", Kind: KindTextarea},
			},
		},

		// ---- Lógica ----
		{
			Type: "decisao", Label: "Decisão", Icon: "split", Category: "logica", Color: "#f59e0b",
			ConfigFields: []FieldDescriptor{
				{Key: "variavel", Label: "Variável", Kind: KindText, Required: true},
				{Key: "operador", Label: "Operador", Kind: KindSelect, Required: true, Options: []Option{
					{Value: "igual", Label: "É igual a"},
					{Value: "contem", Label: "Contém"},
					{Value: "comeca_com", Label: "Começa com"},
					{Value: "diferente", Label: "É diferente de"},
				}},
				{Key: "valor", Label: "Valor", Kind: KindText, Required: true},
			},
			Outputs: []string{"sim", "nao"},
		},
		{
			Type: "horario", Label: "Horário de atendimento", Icon: "clock", Category: "logica", Color: "#eab308",
			ConfigFields: []FieldDescriptor{
				{Key: "diasSemana", Label: "Dias da semana", Kind: KindDiasSemana, Required: true},
				{Key: "horarios", Label: "Horários", Kind: KindHorarios, Required: true},
				{Key: "fusoHorario", Label: "Fuso horário", Kind: KindSelect, Options: []Option{
					{Value: "America/Sao_Paulo", Label: "America/Sao_Paulo"},
					{Value: "America/Manaus", Label: "America/Manaus"},
					{Value: "America/Noronha", Label: "America/Noronha"},
				}},
				{Key: "mensagemForaHorario", Label: "Mensagem fora do horário", Kind: KindTextarea},
			},
			Outputs: []string{"dentro", "fora"},
		},

		// ---- Atendimento ----
		{
			Type: "transferir_agente", Label: "Transferir para agente", Icon: "user", Category: "atendimento", Color: "#10b981",
			ConfigFields: []FieldDescriptor{
				{Key: "agenteId", Label: "Agente", Kind: KindSelectAgent, Required: true},
				{Key: "mensagem", Label: "Mensagem de transferência", Kind: KindTextarea},
			},
		},
		{
			Type: "transferir_departamento", Label: "Transferir para departamento", Icon: "building", Category: "atendimento", Color: "#14b8a6",
			ConfigFields: []FieldDescriptor{
				{Key: "departamentoId", Label: "Departamento", Kind: KindSelectDepartment, Required: true},
				{Key: "mensagem", Label: "Mensagem de transferência", Kind: KindTextarea},
			},
		},
		{
			Type: "transferir_time", Label: "Transferir para time", Icon: "users", Category: "atendimento", Color: "#06b6d4",
			ConfigFields: []FieldDescriptor{
				{Key: "timeId", Label: "Time", Kind: KindSelectTeam, Required: true},
				{Key: "mensagem", Label: "Mensagem de transferência", Kind: KindTextarea},
			},
		},
		{
			Type: "agente_ia", Label: "Agente de IA", Icon: "bot", Category: "atendimento", Color: "#8b5cf6",
			ConfigFields: []FieldDescriptor{
				{Key: "aiAgentId", Label: "Agente de IA", Kind: KindSelectAIAgent, Required: true},
				{Key: "instrucoes", Label: "Instruções adicionais", Kind: KindTextarea},
			},
		},
	}
}
