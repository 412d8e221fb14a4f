// Package cotwire is a client-side transport layer for the Cursor-on-Target
// (CoT) protocol used by TAK servers and tools.
//
// The Client orchestrates the pipeline: for each configured endpoint it
// builds a transport connection, a bounded TX queue drained by a TXWorker,
// and a bounded RX queue filled by an RXWorker. Applications talk to the
// queues, never to sockets:
//
//	cfg := config.FromEnv("mytool")
//	client := cotwire.New(cfg, nil)
//	if err := client.CreateWorkers(ctx, cfg); err != nil {
//		log.Fatal(err)
//	}
//	client.AddTask(myProducer{queues: client.DefaultQueues()})
//	err := client.Run(ctx)
//
// Endpoints are named by a COT_URL such as tls://takserver.example.com:8089
// or udp+wo://239.2.3.1:6969; see package transport for the scheme table.
// Run returns when the first task terminates, for any reason; supervision
// and reconnection policy belong to the caller.
package cotwire
