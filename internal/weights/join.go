// Package weights flags demographic records that fall in PN blocks and
// rolls them up into per-tract apportionment weights.
package weights

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pn-weights/internal/model"
)

// Join restricts records to tracts that contain at least one PN block and
// flags each remaining record by whether its block is a PN block. Records
// keep their input order. Tracts are compared by full tract GEOID, so equal
// tract codes in different counties never match.
//
// A PN tract without any record, or two records for the same block, is a
// join integrity error. PN blocks without a record are reported, not fatal.
func Join(records []model.DemographicRecord, blocks []model.IntersectedBlock) ([]model.FlaggedRecord, model.JoinReport, error) {
	log := zap.L().With(zap.String("component", "join"))

	pnBlocks := make(map[string]bool, len(blocks))
	pnTracts := make(map[string]int)
	for _, b := range blocks {
		pnBlocks[b.GEOID()] = false
		pnTracts[b.Block.TractGEOID()] = 0
	}

	report := model.JoinReport{Records: len(records)}
	excludedTracts := make(map[string]bool)
	seen := make(map[string]bool, len(records))
	var flagged []model.FlaggedRecord

	for _, r := range records {
		tract := r.TractGEOID()
		if _, ok := pnTracts[tract]; !ok {
			report.ExcludedRecords++
			excludedTracts[tract] = true
			continue
		}

		id := r.GEOID()
		if seen[id] {
			return nil, model.JoinReport{}, eris.Wrapf(model.ErrJoinIntegrity, "join: duplicate record for block %s", id)
		}
		seen[id] = true

		_, inPN := pnBlocks[id]
		if inPN {
			pnBlocks[id] = true
			report.InPN++
		}
		pnTracts[tract]++
		flagged = append(flagged, model.FlaggedRecord{DemographicRecord: r, ID: id, InPN: inPN})
	}
	report.Kept = len(flagged)
	report.ExcludedTracts = len(excludedTracts)

	for tract := range pnTracts {
		report.PNTracts = append(report.PNTracts, tract)
	}
	sort.Strings(report.PNTracts)
	for _, tract := range report.PNTracts {
		if pnTracts[tract] == 0 {
			return nil, model.JoinReport{}, eris.Wrapf(model.ErrJoinIntegrity, "join: PN tract %s has no demographic records", tract)
		}
	}

	for id, matched := range pnBlocks {
		if !matched {
			report.UnmatchedBlocks = append(report.UnmatchedBlocks, id)
		}
	}
	sort.Strings(report.UnmatchedBlocks)
	if len(report.UnmatchedBlocks) > 0 {
		log.Warn("PN blocks without demographic records",
			zap.Int("count", len(report.UnmatchedBlocks)),
			zap.Strings("blocks", report.UnmatchedBlocks),
		)
	}

	log.Info("join complete",
		zap.Int("records", report.Records),
		zap.Int("kept", report.Kept),
		zap.Int("in_pn", report.InPN),
		zap.Int("excluded_records", report.ExcludedRecords),
		zap.Int("pn_tracts", len(report.PNTracts)),
	)
	return flagged, report, nil
}
