// Package inventory classifies current stock levels against per-ingredient
// replenishment thresholds and aggregates dashboard KPIs.
//
// Classification is a pure function of one stock level and its thresholds;
// the first matching rule wins and the rule order is part of the contract:
//
//	stock < reorder point  -> low_stock
//	stock < safety stock   -> critical
//	stock > par level * 1.5 -> overstocked
//	otherwise              -> adequate
//
// Because the rules are ordered, an ingredient below both its reorder point
// and its safety stock reports low_stock, not critical. Callers that need
// the "needs attention" set treat low_stock and critical together.
//
// A data-store failure does not fail the report. Levels degrades to a
// fixed demo catalog and tags the report Source synthetic so callers can
// tell the degraded case apart from real data.
package inventory
