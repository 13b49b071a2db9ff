// Package backup snapshots files before clawmgr rewrites them.
//
// Each snapshot is a directory containing the copied files and a
// manifest.json with their SHA256 hashes:
//
//	$XDG_DATA_HOME/clawmgr/backups/
//	└── {target}/
//	    └── {timestamp}-{suffix}/
//	        ├── manifest.json
//	        └── {copied files...}
//
// Writers call [Manager.EnsureBackedUp] before each rewrite. Only the first
// call per target in a process copies anything; it then prunes the target
// down to the retention count. [Manager.Restore] verifies hashes before
// writing files back and fails with [ErrBackupCorrupted] on mismatch.
package backup
