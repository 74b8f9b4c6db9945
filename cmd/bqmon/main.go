package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"time"

	"github.com/robotalks/bms.go/pkg/bq/env"
	fx "github.com/robotalks/bms.go/pkg/framework"
	"github.com/robotalks/bms.go/pkg/monitor"
	"github.com/robotalks/bms.go/pkg/telemetry"
	"github.com/robotalks/bms.go/pkg/telemetry/mqtt"
	"github.com/robotalks/bms.go/pkg/telemetry/websocket"
)

var (
	watches  = "0x0104:1:all_r"
	interval = time.Second
	bringUp  = true
	wsAddr   = ""
)

func init() {
	env.SetupFlags()
	flag.StringVar(&watches, "watch", watches, "Registers to poll, REG[:LEN[:TYPE[@DEV]]],...")
	flag.DurationVar(&interval, "interval", interval, "Poll interval")
	flag.BoolVar(&bringUp, "bringup", bringUp, "Bring up the chain before polling")
	flag.StringVar(&wsAddr, "ws", wsAddr, "Serve telemetry over websocket on this address")
}

func main() {
	flag.Parse()

	conf := env.Default()
	ws, err := monitor.ParseWatches(watches)
	if err != nil {
		log.Fatalln(err)
	}
	e := conf.MustOpen()
	defer e.Close()

	pub := &telemetry.Publisher{}
	if conf.MQTTBrokerURL != "" {
		q, err := mqtt.NewQueueFromURL(conf.MQTTBrokerURL, conf.MonitorID)
		if err != nil {
			log.Fatalln(err)
		}
		if err := q.Connect(); err != nil {
			log.Fatalf("connect %s: %v", conf.MQTTBrokerURL, err)
		}
		pub.Add(mqtt.NewPacketReadWriter(q).ForMonitor(conf.MonitorID))
		defer q.Close()
	}
	if wsAddr != "" {
		pub.Add(websocket.NewHub(wsAddr))
	}
	defer pub.Close()

	mon := &monitor.Monitor{
		ID:      conf.MonitorID,
		Chain:   e.Chain,
		Watches: ws,
		BringUp: bringUp,
	}
	if pub.Len() > 0 {
		mon.Publisher = pub
	}

	loop := fx.NewLoop()
	loop.Interval = interval
	loop.Add(mon, pub)
	if err := fx.NewRunner().HandleSignals().Go(fx.NamedRun("monitor", loop)).Wait(); err != nil {
		log.Fatalln(err)
	}
}
