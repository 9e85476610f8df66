// Package shipment computes lead-time analytics over vendor shipments.
//
// A shipment counts on-time when it was delivered with an observed lead
// time of at most seven days; it counts delayed purely by status. Lead
// times are unknown for shipments still in transit, so AverageLeadTime
// depends on an explicit LeadTimePolicy: ZeroFill treats unknown leads as
// zero days (keeps historical report numbers stable), ExcludeUnknown
// averages only observed leads.
//
// Like the inventory report, a data-store failure degrades to a small
// fixed demo set tagged Source synthetic rather than failing the request.
package shipment
