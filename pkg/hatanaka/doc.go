/*
Package hatanaka compresses and decompresses GNSS observation files using the
Hatanaka Compact RINEX (CRINEX) format.

Every field of an observation file is stored as an n-th order difference of its own
history: the epoch line and the observation flags as text differences, the receiver
clock offset and the observations as numeric differences. Decompress reverses this and
rebuilds the fixed-column RINEX text.

	stats, err := hatanaka.Decompress(ctx, crx, rnx, hatanaka.DefaultOptions())

CRINEX version 1.0 carries RINEX-2 files, version 3.0 carries RINEX-3 and RINEX-4 files.
Navigation and other RINEX file types are not supported.
*/
package hatanaka
