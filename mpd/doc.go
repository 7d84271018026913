// Package mpd implements the client side of the Music Player Daemon text
// protocol.
//
// The protocol is line oriented. The client writes one command per line and
// the daemon answers with zero or more "key: value" lines followed by a
// terminator:
//
//	Request:           verb [arg ...]\n
//	Success:           OK\n
//	Failure:           ACK [code@index] {verb} message\n
//	Change report:     changed: <subsystem>\n
//	Binary payload:    binary: N\n<N raw bytes>\n
//	Command list:      command_list_ok_begin\n ... command_list_end\n
//
// Example Session:
//
//	SRV: OK MPD 0.24.0
//	CLI: status
//	SRV: volume: 50
//	SRV: repeat: 0
//	SRV: state: play
//	SRV: OK
//	CLI: play 99
//	SRV: ACK [50@0] {play} No such song
//
// # Basic Usage
//
// Create a client, install handlers and connect:
//
//	client := mpd.NewClient(mpd.DefaultConfig(), mpd.WithLogger(logger))
//	client.SetChangeHandler(func(changes mpd.ChangeSet) {
//	    fmt.Println("changed:", changes.Subsystems())
//	})
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	status, err := client.Status(ctx)
//
// # Idle Handling
//
// While no command is running the client keeps an "idle" request open so the
// daemon can push change notifications. Issuing a command interrupts it with
// "noidle", drains the idle response, runs the command and re-arms idle.
// Change-sets are delivered to the change handler from a single dispatcher
// goroutine, so handlers may call back into the client.
//
// # Decoding
//
// Responses are decoded one line at a time through the Decoder interface.
// Entities such as Song and Status implement it directly, List splits a
// response into elements on marker keys, and the Decode driver runs any
// Decoder against a response.
//
// # Thread Safety
//
// A Client is safe for concurrent use, but it carries exactly one command at
// a time; a caller that finds it busy gets ErrBusy and may retry.
package mpd
