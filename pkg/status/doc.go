/*
Package status tracks per-file outcomes for clmigrate runs.

	            +-------------+
	            |   Status    |
	            |  (Tracker)  |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |                       |
	+-----+-----+           +----+----+
	|  Outcomes |           | Summary |
	| (per file)|           | (pterm) |
	+-----------+           +---------+

🎯 Purpose:
- Records what happened to every file (uploaded, repaired, skipped, failed)
- Reports progress as folders are discovered
- Renders the end of run summary

🔄 Flow:
1. The migrator grows the expected total as it lists each folder
2. Every file outcome is tracked once per path; later outcomes replace earlier ones
3. The command renders a Summary from the tracker when the run ends

🤝 Interfaces:
- Reporter: outcome tracking and progress
- FileFormatter: message formatting for outcomes and progress

🔍 Example:

	tracker := status.New()
	tracker.StartOperation(ctx, 0)
	tracker.TrackFile(ctx, status.FileInfo{Path: "100/a.pdf", Status: status.StatusUploaded})
	_ = status.RenderSummary(os.Stdout, status.Summary{Counts: tracker.Counts()})
*/
package status
