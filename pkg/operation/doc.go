/*
Package operation moves a local document tree into the remote CLM store.

	+-------------+      +----------------+
	|   Source    |----->|    Migrator    |
	| (local tree)|      | (folder by     |
	+-------------+      |  folder)       |
	                     +-------+--------+
	                             |
	      +----------------------+----------------------+
	      |                      |                      |
	+-----+---------+   +--------+-------+   +----------+----+
	| FolderResolver|   |    Uploader    |   |    Attacher   |
	| (2^k backoff) |   | (fixed delay)  |   | (best effort) |
	+---------------+   +----------------+   +---------------+

🎯 Purpose:
- Mirrors every local folder remotely, creating what is missing
- Uploads files in bounded concurrent batches
- Attaches sheet attributes to uploaded documents
- Repairs file extensions from content before upload

🔄 Flow:
1. Folders are visited parents first, in numeric name order
2. Each folder is resolved remotely; a folder that cannot be resolved skips its subtree
3. Files are inspected, renamed when their extension is wrong and dropped when they have none
4. The remaining files upload in batches; one failing file never affects the others
5. Every outcome lands in the Report, the status tracker and the journal

⚡ Retry policy:
- Folder lookups double their delay after every failure: 3s, 6s, 12s...
- Uploads wait a fixed 2s between attempts
- A per request timeout is terminal for that call
- Metadata updates are tried once

🧰 Tools:
- RepairExtensions and StripExtensions rename files in bulk
- CheckItems verifies sheet rows against the local tree
- Inventory lists the local tree for an inventory sheet

🔍 Example:

	m, err := operation.New(operation.Options{
		API:        client,
		Source:     dir,
		Journal:    j,
		RootFolder: "root-id",
	})
	report, err := m.MigrateTree(ctx)
*/
package operation
