package store

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/types"
)

// PropertyRecord is one index.PropertyEntry persisted against a
// path-relative, restart-stable encoding of its types.SemanticDeclId —
// a raw SemanticDeclId embeds a types.FileID, which is only a valid
// session-scoped handle (files are assigned fresh ids in whatever
// order the next FullIndex discovers them), so it cannot be stored
// directly. Path (supplied by the caller, one file at a time) plus the
// Kind/Pos/EndPos/NodeKind/TypeName fields below is exactly enough to
// rebuild the id once the caller has a FileID for Path again.
type PropertyRecord struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	Path     string `gorm:"index;not null"`
	SemKind  uint8
	Pos      int
	EndPos   int
	NodeKind uint16
	TypeName string

	Description      string
	Deprecated        bool
	DeprecatedReason  string
	Source            string
	SeeAlso           datatypes.JSON
}

func (PropertyRecord) TableName() string { return "property_records" }

func toRecord(path string, id types.SemanticDeclId, p *index.PropertyEntry) (PropertyRecord, error) {
	seeAlso, err := json.Marshal(p.SeeAlso)
	if err != nil {
		return PropertyRecord{}, err
	}
	r := PropertyRecord{
		Path:             path,
		SemKind:          uint8(id.Kind),
		Description:      p.Description,
		Deprecated:       p.Deprecated,
		DeprecatedReason: p.DeprecatedReason,
		Source:           p.Source,
		SeeAlso:          datatypes.JSON(seeAlso),
	}
	switch id.Kind {
	case types.SemDecl:
		r.Pos = id.Decl.Pos
	case types.SemMember:
		r.Pos = id.Mem.Syn.Range.Start
		r.EndPos = id.Mem.Syn.Range.End
		r.NodeKind = uint16(id.Mem.Syn.Kind)
	case types.SemSignature:
		r.Pos = id.Sig.Range.Start
		r.EndPos = id.Sig.Range.End
	case types.SemTypeDecl:
		r.TypeName = string(id.Type)
	}
	return r, nil
}

func (r PropertyRecord) semanticID(file types.FileID) types.SemanticDeclId {
	switch types.SemanticDeclKind(r.SemKind) {
	case types.SemDecl:
		return types.SemanticOfDecl(types.DeclId{File: file, Pos: r.Pos})
	case types.SemMember:
		syn := types.SyntaxID{Kind: types.NodeKind(r.NodeKind), Range: types.ByteRange{Start: r.Pos, End: r.EndPos}}
		return types.SemanticOfMember(types.MemberId{File: file, Syn: syn})
	case types.SemSignature:
		return types.SemanticOfSignature(types.SignatureId{File: file, Range: types.ByteRange{Start: r.Pos, End: r.EndPos}})
	case types.SemTypeDecl:
		return types.SemanticOfTypeDecl(types.TypeDeclId(r.TypeName))
	default:
		return types.SemanticDeclId{}
	}
}

func (r PropertyRecord) propertyEntry() *index.PropertyEntry {
	var seeAlso []string
	if len(r.SeeAlso) > 0 {
		_ = json.Unmarshal(r.SeeAlso, &seeAlso)
	}
	return &index.PropertyEntry{
		Description:      r.Description,
		Deprecated:       r.Deprecated,
		DeprecatedReason: r.DeprecatedReason,
		Source:           r.Source,
		SeeAlso:          seeAlso,
	}
}

// SaveProperties replaces path's stored property records with entries
// in one transaction: every property entry the doc pass (component E)
// recorded for path's decls/members/signatures/type decls, keyed by
// their SemanticDeclId.
func (s *Store) SaveProperties(path string, entries map[types.SemanticDeclId]*index.PropertyEntry) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("path = ?", path).Delete(&PropertyRecord{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		rows := make([]PropertyRecord, 0, len(entries))
		for id, p := range entries {
			r, err := toRecord(path, id, p)
			if err != nil {
				return err
			}
			rows = append(rows, r)
		}
		return tx.Create(&rows).Error
	})
}

// LoadProperties reconstructs path's stored property entries, keyed by
// SemanticDeclId rebuilt against file — the FileID path was just
// (re-)assigned under this session, which may differ from whatever
// FileID it had when SaveProperties last ran.
func (s *Store) LoadProperties(path string, file types.FileID) (map[types.SemanticDeclId]*index.PropertyEntry, error) {
	var rows []PropertyRecord
	if err := s.db.Where("path = ?", path).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[types.SemanticDeclId]*index.PropertyEntry, len(rows))
	for _, r := range rows {
		out[r.semanticID(file)] = r.propertyEntry()
	}
	return out, nil
}
