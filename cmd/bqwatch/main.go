package main

import (
	"context"
	"flag"
	"log"
	"os"
	"reflect"

	fx "github.com/robotalks/bms.go/pkg/framework"
	"github.com/robotalks/bms.go/pkg/telemetry"
	"github.com/robotalks/bms.go/pkg/telemetry/mqtt"
	"github.com/robotalks/bms.go/pkg/telemetry/msgs"
	"github.com/robotalks/bms.go/pkg/telemetry/websocket"
)

var (
	mqttURL   = "mqtt://localhost:1883/bms/"
	wsURL     = ""
	monitorID = "+"
)

func init() {
	if val := os.Getenv("BQ_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&wsURL, "ws", wsURL, "Websocket telemetry URL, e.g. ws://host:8080/telemetry, used instead of MQTT.")
	flag.StringVar(&monitorID, "id", monitorID, "Monitor to watch, + for all.")
}

func printMessage(_ context.Context, msg fx.Message) {
	log.Printf("[%s] %s",
		reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
		msg.(msgs.SerializableMessage).Serializable().String())
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	runner := fx.NewRunner().HandleSignals()
	recv := &telemetry.Receiver{Handler: fx.HandleMessageFunc(printMessage)}
	if wsURL != "" {
		rw, err := websocket.Dial(wsURL)
		if err != nil {
			log.Fatalln(err)
		}
		recv.Reader = rw
		runner.Go(fx.NamedRun("receiver", fx.RunnableFunc(func(ctx context.Context) error {
			return fx.RunWithContextCloser(ctx, rw, func() error { return recv.Run(ctx) })
		})))
	} else {
		q, err := mqtt.NewQueueFromURL(mqttURL, "")
		if err != nil {
			log.Fatalln(err)
		}
		if err := q.Connect(); err != nil {
			log.Fatalf("connect %s: %v", mqttURL, err)
		}
		defer q.Close()
		rw := mqtt.NewPacketReadWriter(q).ForWatcher(monitorID)
		recv.Reader = rw
		runner.Go(fx.NamedRun("mqtt", rw), fx.NamedRun("receiver", recv))
	}

	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
