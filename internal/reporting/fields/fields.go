// Package fields maps caller-supplied field names onto the record's storage
// locations and reads values with a fixed precedence: normalized column, then
// payload exact key, then payload case/alias variants.
package fields

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/normalization"
)

// ErrUnknownField means no alias matched. It is never fatal: callers drop to
// in-memory evaluation using the raw name as a payload key.
var ErrUnknownField = errors.New("unknown field")

type Field string

const (
	Status            Field = "status"
	Theme             Field = "theme"
	Subject           Field = "subject"
	Organ             Field = "organ"
	Channel           Field = "channel"
	Priority          Field = "priority"
	RegisteringUnit   Field = "registeringUnit"
	Responsible       Field = "responsible"
	ManifestationType Field = "manifestationType"
	CreationDate      Field = "creationDate"
	CompletionDate    Field = "completionDate"
	Protocol          Field = "protocol"
	Neighborhood      Field = "neighborhood"
)

type Kind int

const (
	KindColumn Kind = iota + 1
	KindPayload
)

func (k Kind) String() string {
	switch k {
	case KindColumn:
		return "column"
	case KindPayload:
		return "payload"
	default:
		return "unknown"
	}
}

// Resolution says where a logical field lives. KindColumn resolutions can be
// pushed into store predicates; Variants are still consulted in memory when
// the column is empty.
type Resolution struct {
	Field    Field
	Kind     Kind
	Column   string
	Variants []string
	Date     bool
}

type definition struct {
	column   string
	variants []string
	date     bool
	aliases  []string
}

var definitions = map[Field]definition{
	Status: {
		column:   domain.ColumnStatus,
		variants: []string{"Status", "status", "StatusDemanda", "statusDemanda", "Status da Demanda", "Situação"},
		aliases:  []string{"status", "status demanda", "status da demanda", "situacao"},
	},
	Theme: {
		column:   domain.ColumnTheme,
		variants: []string{"Tema", "tema"},
		aliases:  []string{"tema"},
	},
	Subject: {
		column:   domain.ColumnSubject,
		variants: []string{"Assunto", "assunto"},
		aliases:  []string{"assunto"},
	},
	Organ: {
		column:   domain.ColumnOrgan,
		variants: []string{"Órgãos", "orgaos", "Orgaos", "Órgão", "orgao", "Secretaria"},
		aliases:  []string{"orgaos", "orgao", "secretaria"},
	},
	Channel: {
		column:   domain.ColumnChannel,
		variants: []string{"Canal", "canal", "Canal de Entrada"},
		aliases:  []string{"canal", "canal de entrada"},
	},
	Priority: {
		column:   domain.ColumnPriority,
		variants: []string{"Prioridade", "prioridade"},
		aliases:  []string{"prioridade"},
	},
	RegisteringUnit: {
		column:   domain.ColumnRegisteringUnit,
		variants: []string{"UAC", "uac", "Unidade de Atendimento", "unidadeCadastro", "Unidade Cadastro", "unidade_cadastro"},
		aliases:  []string{"uac", "unidade de atendimento", "unidade cadastro", "unidade de cadastro"},
	},
	Responsible: {
		column:   domain.ColumnResponsible,
		variants: []string{"Responsável", "responsavel", "Servidor", "servidor"},
		aliases:  []string{"responsavel", "servidor"},
	},
	ManifestationType: {
		column:   domain.ColumnManifestationType,
		variants: []string{"Tipo de Manifestação", "tipoDeManifestacao", "TipoDeManifestacao", "tipo_de_manifestacao", "Tipo"},
		aliases:  []string{"tipo de manifestacao", "tipo manifestacao", "tipo"},
	},
	CreationDate: {
		column:   domain.ColumnCreationDateISO,
		variants: []string{"Data da Criação", "dataDaCriacao", "data_da_criacao", "dataCriacao", "Data Criação", "Data de Criação"},
		date:     true,
		aliases:  []string{"data da criacao", "data criacao", "data de criacao", "data criacao iso"},
	},
	CompletionDate: {
		column:   domain.ColumnCompletionDateISO,
		variants: []string{"Data da Conclusão", "dataDaConclusao", "data_da_conclusao", "dataConclusao", "Data Conclusão"},
		date:     true,
		aliases:  []string{"data da conclusao", "data conclusao", "data conclusao iso"},
	},
	Protocol: {
		column:   domain.ColumnProtocol,
		variants: []string{"Protocolo", "protocolo"},
		aliases:  []string{"protocolo"},
	},
	Neighborhood: {
		variants: []string{"Bairro", "bairro"},
		aliases:  []string{"bairro"},
	},
}

// Resolver holds the alias table. It is immutable after construction and
// safe for concurrent use.
type Resolver struct {
	aliases map[string]Field
}

var defaultResolver = mustResolver(nil)

// Default returns the resolver built from the static alias table.
func Default() *Resolver { return defaultResolver }

// NewResolver builds a resolver from the static table plus extra aliases
// (alias -> canonical field name), typically loaded from config.
func NewResolver(extra map[string]string) (*Resolver, error) {
	r := &Resolver{aliases: map[string]Field{}}
	for f, def := range definitions {
		r.aliases[normalization.Key(string(f))] = f
		r.aliases[normalization.Key(def.column)] = f
		for _, a := range def.aliases {
			r.aliases[normalization.Key(a)] = f
		}
		for _, v := range def.variants {
			r.aliases[normalization.Key(v)] = f
		}
	}
	delete(r.aliases, "")
	for alias, target := range extra {
		f, ok := r.aliases[normalization.Key(target)]
		if !ok {
			return nil, fmt.Errorf("alias %q targets unknown field %q", alias, target)
		}
		if k := normalization.Key(alias); k != "" {
			r.aliases[k] = f
		}
	}
	return r, nil
}

func mustResolver(extra map[string]string) *Resolver {
	r, err := NewResolver(extra)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve maps free text such as "UAC" or "Unidade de Atendimento" to its
// storage location. It returns ErrUnknownField when nothing matches.
func (r *Resolver) Resolve(logical string) (Resolution, error) {
	f, ok := r.aliases[normalization.Key(logical)]
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %q", ErrUnknownField, logical)
	}
	return resolutionFor(f), nil
}

// Unresolved is the in-memory strategy for a name that did not resolve: the
// raw name is the only payload key, matched exactly and then case-insensitively.
func Unresolved(name string) Resolution {
	return Resolution{Field: Field(name), Kind: KindPayload, Variants: []string{name}}
}

func resolutionFor(f Field) Resolution {
	def := definitions[f]
	res := Resolution{
		Field:    f,
		Kind:     KindPayload,
		Variants: append([]string(nil), def.variants...),
		Date:     def.date,
	}
	if def.column != "" {
		res.Kind = KindColumn
		res.Column = def.column
	}
	return res
}

// Read returns the value of res on rec applying the fixed precedence.
func Read(rec *domain.Record, res Resolution) (string, bool) {
	if rec == nil {
		return "", false
	}
	if res.Kind == KindColumn {
		if v, ok := rec.Column(res.Column); ok {
			return v, true
		}
	}
	return ReadPayload(rec.PayloadMap(), res.Variants)
}

// ReadPayload looks variants up in priority order: every exact key first, then
// keys equal after case and accent folding. Blank values are skipped.
func ReadPayload(payload map[string]any, variants []string) (string, bool) {
	if len(payload) == 0 || len(variants) == 0 {
		return "", false
	}
	for _, k := range variants {
		if v, ok := payload[k]; ok {
			if s, ok := Stringify(v); ok {
				return s, true
			}
		}
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, want := range variants {
		wk := normalization.Key(want)
		if wk == "" {
			continue
		}
		for _, k := range keys {
			if normalization.Key(k) != wk {
				continue
			}
			if s, ok := Stringify(payload[k]); ok {
				return s, true
			}
		}
	}
	return "", false
}

// Lookup returns the resolution of a canonical field without alias matching.
func Lookup(f Field) Resolution { return resolutionFor(f) }
