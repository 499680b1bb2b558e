// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"hash/fnv"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/gops/agent"

	"github.com/wontakkang/xgtcore/internal/aggregate"
	"github.com/wontakkang/xgtcore/internal/cmdlog"
	"github.com/wontakkang/xgtcore/internal/config"
	"github.com/wontakkang/xgtcore/internal/decode"
	"github.com/wontakkang/xgtcore/internal/kvcache"
	"github.com/wontakkang/xgtcore/internal/mcuproto"
	"github.com/wontakkang/xgtcore/internal/poll"
	"github.com/wontakkang/xgtcore/internal/repository"
	"github.com/wontakkang/xgtcore/internal/runtimeEnv"
	"github.com/wontakkang/xgtcore/internal/scheduler"
	"github.com/wontakkang/xgtcore/internal/transaction"
	"github.com/wontakkang/xgtcore/internal/transport"
	"github.com/wontakkang/xgtcore/internal/util"
	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/schema"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// version is overwritten at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var flagConfigFile string
	var flagVersion, flagMigrateDB, flagGops, flagLogDate bool
	var flagLogLevel string
	var flagDOWrite, flagDOWriteAll, flagDIThreshold, flagFirmware, flagFirmwareVersion, flagNodeSelect, flagLSISWrite string
	var flagSerialSetup, flagSerialSetupRead, flagSerialWrite string

	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the default config options by those specified in `config.json`")
	flag.BoolVar(&flagVersion, "version", false, "Print version and exit")
	flag.BoolVar(&flagMigrateDB, "migrate-db", false, "Apply pending database migrations and exit")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.BoolVar(&flagLogDate, "logdate", false, "Prefix log lines with a timestamp")
	flag.StringVar(&flagLogLevel, "loglevel", "", "Override the configured log level (debug, info, notice, warn, err, crit)")
	flag.StringVar(&flagDOWrite, "do-write", "", "One-off MCU digital-output write: `session:channel:value`, then exit")
	flag.StringVar(&flagDOWriteAll, "do-write-all", "", "One-off MCU write of all 8 digital outputs: `session:01010101`, then exit")
	flag.StringVar(&flagDIThreshold, "di-threshold", "", "One-off MCU DI threshold write: `session:level` (0, 1 or 2), then exit")
	flag.StringVar(&flagFirmware, "firmware-update", "", "One-off MCU firmware push: `session:path-to-image`, then exit")
	flag.StringVar(&flagFirmwareVersion, "firmware-version", "", "Read one MCU session's firmware version triplet: `session`, then exit")
	flag.StringVar(&flagNodeSelect, "node-select", "", "Probe one MCU session's node-select handshake: `session`, then exit")
	flag.StringVar(&flagSerialSetup, "serial-setup", "", "Configure an MCU UART sub-channel: `session:channel:baud:parity:stop:size` (all numeric codes), then exit")
	flag.StringVar(&flagSerialSetupRead, "serial-setup-read", "", "Query an MCU UART sub-channel config: `session:channel`, then exit")
	flag.StringVar(&flagSerialWrite, "serial-write", "", "Transparent passthrough write on an MCU UART sub-channel: `session:channel:hex-payload`, then exit")
	flag.StringVar(&flagLSISWrite, "lsis-write", "", "One-off LSIS control write: `client:variable:value`, then exit")
	flag.Parse()

	if flagVersion {
		fmt.Printf("xgtcored %s\n", version)
		return
	}

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	config.Init(flagConfigFile)

	if flagLogLevel != "" {
		log.SetLogLevel(flagLogLevel)
	} else {
		log.SetLogLevel(config.Keys.LogLevel)
	}
	log.SetLogDateTime(flagLogDate)

	repository.Connect(config.Keys.DBDriver, config.Keys.DB)

	if flagMigrateDB {
		if err := repository.MigrateDB(config.Keys.DBDriver, config.Keys.DB); err != nil {
			log.Fatal(err)
		}
		log.Print("database migrated")
		return
	}

	mcuByName := mcuSessionsByName(config.Keys.McuSessions)

	switch {
	case flagDOWrite != "":
		runDOWrite(flagDOWrite, mcuByName)
		return
	case flagDOWriteAll != "":
		runDOWriteAll(flagDOWriteAll, mcuByName)
		return
	case flagDIThreshold != "":
		runDIThreshold(flagDIThreshold, mcuByName)
		return
	case flagFirmware != "":
		runFirmwareUpdate(flagFirmware, mcuByName)
		return
	case flagFirmwareVersion != "":
		runFirmwareVersion(flagFirmwareVersion, mcuByName)
		return
	case flagNodeSelect != "":
		oneOffMCUCommand("node-select", flagNodeSelect, mcuByName, nil, nil)
		return
	case flagSerialSetup != "":
		runSerialSetup(flagSerialSetup, mcuByName)
		return
	case flagSerialSetupRead != "":
		runSerialSetupRead(flagSerialSetupRead, mcuByName)
		return
	case flagSerialWrite != "":
		runSerialWrite(flagSerialWrite, mcuByName)
		return
	case flagLSISWrite != "":
		runLSISWrite(flagLSISWrite, config.Keys.Clients)
		return
	}

	run()
}

// run wires the scheduler, the per-client/session pollers and the four
// fixed aggregation jobs together and blocks until a shutdown signal
// arrives.
func run() {
	cache := kvcache.New()
	registry := decode.NewRegistry()
	registry.Subscribe(loggingObserver{})

	cmdLog := cmdlog.New()
	bucketRepo := repository.GetBucketRepository()
	loc := config.Keys.Location()

	sched, err := scheduler.New(config.Keys.ShutdownGrace())
	if err != nil {
		log.Fatal(err)
	}

	clientConfigRepo := repository.GetClientConfigRepository()
	for _, cfg := range config.Keys.Clients {
		c := cfg
		if err := clientConfigRepo.Save(&c); err != nil {
			log.Errorf("xgtcored: persisting client config %d failed: %v", c.ID, err)
		}
	}

	usedClients, err := clientConfigRepo.ListUsed()
	if err != nil {
		log.Fatal(err)
	}
	bootstrapTasks := make([]func(ctx context.Context) error, 0, len(usedClients))
	for _, cfg := range usedClients {
		cfg := cfg
		bootstrapTasks = append(bootstrapTasks, func(ctx context.Context) error {
			registerTCPPoller(sched, *cfg, cache, registry, cmdLog)
			return nil
		})
	}
	if err := scheduler.RunConcurrently(context.Background(), bootstrapTasks...); err != nil {
		log.Errorf("xgtcored: client bootstrap: %v", err)
	}

	for _, mcu := range config.Keys.McuSessions {
		registerMCUPoller(sched, mcu, cache)
	}

	twoMin := &aggregate.TwoMinuteAggregator{Cache: cache, Repo: bucketRepo, Location: loc}
	tenMin := &aggregate.HigherResAggregator{Repo: bucketRepo, Resolution: schema.TenMinute, Location: loc}
	hourly := &aggregate.HigherResAggregator{Repo: bucketRepo, Resolution: schema.Hourly, Location: loc}
	daily := &aggregate.HigherResAggregator{Repo: bucketRepo, Resolution: schema.Daily, Location: loc}

	for _, spec := range scheduler.BuildAggregationJobs(
		&scheduler.DedupedRunner{Runner: twoMin},
		&scheduler.DedupedRunner{Runner: tenMin},
		&scheduler.DedupedRunner{Runner: hourly},
		&scheduler.DedupedRunner{Runner: daily},
	) {
		if err := sched.Register(spec); err != nil {
			log.Fatal(err)
		}
	}

	sched.Start()
	runtimeEnv.SystemdNotifiy(true, "running")
	log.Infof("xgtcored %s running", version)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	runtimeEnv.SystemdNotifiy(false, "shutting down")
	log.Warnf("xgtcored: shutdown signal received, dumping goroutine stacks:\n%s", debug.Stack())
	if err := sched.Stop(); err != nil {
		log.Errorf("xgtcored: scheduler stop: %v", err)
	}
	log.Print("xgtcored: graceful shutdown completed")
}

// registerTCPPoller dials one LSIS client, feeds its MemoryGroups into
// registry so decode.Observer implementations see them, and registers
// one job under the client's own CronTrigger that reads its blocks and
// then runs its system-status probe.
func registerTCPPoller(sched *scheduler.Scheduler, cfg schema.SocketClientConfig, cache *kvcache.Cache, registry *decode.Registry, cmdLog *cmdlog.Logger) {
	for _, g := range cfg.MemoryGroups {
		registry.UpdateGroup(cfg.ID, g)
	}

	client, err := poll.NewTCPClient(cfg, cache, 5*time.Second, 5*time.Second, transaction.DefaultRetryPolicy)
	if err != nil {
		log.Errorf("xgtcored: client %d: initial connect failed: %v", cfg.ID, err)
		return
	}

	cronExpr, interval, err := scheduler.FromConfig(cfg.Cron)
	if err != nil {
		log.Errorf("xgtcored: client %d: %v", cfg.ID, err)
		return
	}

	clientID := cfg.ID
	err = sched.Register(scheduler.JobSpec{
		Name:         fmt.Sprintf("poll-client-%d", clientID),
		Cron:         cronExpr,
		Interval:     interval,
		MisfireGrace: 15 * time.Second,
		Run: func(ctx context.Context) error {
			if err := client.PollOnce(ctx); err != nil {
				return err
			}
			status, err := client.PollStatus(ctx)
			if err != nil {
				log.Warnf("xgtcored: client %d: status probe failed: %v", clientID, err)
				return nil
			}
			return cmdLog.NoteStatus(ctx, clientID, status, status.ErrorCode)
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}

// registerMCUPoller builds the serial config for one MCU session and
// registers its poll-command batch on a fixed 5s interval; the
// per-session CronTrigger only applies to LSIS clients, MCU sessions
// poll on a single schedule shared across the fleet.
func registerMCUPoller(sched *scheduler.Scheduler, mcu config.McuSessionConfig, cache *kvcache.Cache) {
	serialCfg, err := buildSerialConfig(mcu)
	if err != nil {
		log.Errorf("xgtcored: mcu session %q: %v", mcu.Name, err)
		return
	}

	client := &poll.McuClient{
		ClientID: mcuClientID(mcu.Name),
		Cache:    cache,
		Cfg:      serialCfg,
		Commands: mcu.PollCommands,
	}

	err = sched.Register(scheduler.JobSpec{
		Name:         fmt.Sprintf("poll-mcu-%s", mcu.Name),
		Interval:     5 * time.Second,
		MisfireGrace: 15 * time.Second,
		Run:          client.PollOnce,
	})
	if err != nil {
		log.Fatal(err)
	}
}

// loggingObserver is the decode.Observer hooked up at startup so every
// MemoryGroup definition change is at least visible in the logs, even
// when nothing downstream has a stronger opinion about it.
type loggingObserver struct{}

func (loggingObserver) OnMemoryGroupChanged(event decode.GroupChangedEvent) {
	log.Debugf("xgtcored: memory group %q changed for client %d (%d variables)",
		event.Group.Name, event.ClientID, len(event.Group.Variables))
}

func mcuSessionsByName(sessions []config.McuSessionConfig) map[string]config.McuSessionConfig {
	out := make(map[string]config.McuSessionConfig, len(sessions))
	for _, s := range sessions {
		out[s.Name] = s
	}
	return out
}

// mcuClientID derives a stable cache/client identifier from a session
// name: MCU sessions are named in config, not numbered, but the KV
// cache and aggregator both key samples by an int64 client_id.
func mcuClientID(name string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum32())
}

var knownChecksumAlgorithms = []mcuproto.ChecksumAlgorithm{
	mcuproto.ChecksumXOR,
	mcuproto.ChecksumSum,
	mcuproto.ChecksumLRC,
	mcuproto.ChecksumCRC16Modbus,
	mcuproto.ChecksumCRC16CCITT,
	mcuproto.ChecksumCRC32,
	mcuproto.ChecksumAdler32,
}

func buildSerialConfig(mcu config.McuSessionConfig) (transport.SerialConfig, error) {
	parity, err := transport.ParseParity(mcu.Parity)
	if err != nil {
		return transport.SerialConfig{}, fmt.Errorf("mcu session %q: %w", mcu.Name, err)
	}
	stopBits, err := transport.ParseStopBits(mcu.StopBits)
	if err != nil {
		return transport.SerialConfig{}, fmt.Errorf("mcu session %q: %w", mcu.Name, err)
	}
	nodeSerial, err := parseNodeSerial(mcu.NodeSerialHex)
	if err != nil {
		return transport.SerialConfig{}, fmt.Errorf("mcu session %q: %w", mcu.Name, err)
	}

	algo := mcuproto.ChecksumAlgorithm(mcu.Algorithm)
	if algo == "" {
		algo = mcuproto.ChecksumXOR
	} else if !util.Contains(knownChecksumAlgorithms, algo) {
		return transport.SerialConfig{}, fmt.Errorf("mcu session %q: unknown checksum algorithm %q", mcu.Name, mcu.Algorithm)
	}

	responseTimeout := time.Duration(mcu.ResponseTimeoutMS) * time.Millisecond
	if responseTimeout <= 0 {
		responseTimeout = 3 * time.Second
	}
	firmwareTimeout := time.Duration(mcu.FirmwareTimeoutMS) * time.Millisecond
	if firmwareTimeout <= 0 {
		firmwareTimeout = 100 * time.Millisecond
	}

	return transport.SerialConfig{
		Port:                    mcu.Port,
		Baud:                    mcu.Baud,
		DataBits:                mcu.DataBits,
		Parity:                  parity,
		StopBits:                stopBits,
		NodeSerial:              nodeSerial,
		ResponseTimeout:         responseTimeout,
		FirmwareResponseTimeout: firmwareTimeout,
		Algorithm:               algo,
		MaxPacketSize:           mcu.MaxPacketSize,
	}, nil
}

func parseNodeSerial(s string) ([8]byte, error) {
	var out [8]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("node serial %q: %w", s, err)
	}
	if len(raw) != 8 {
		return out, fmt.Errorf("node serial %q must decode to 8 bytes, got %d", s, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// oneOffMCUCommand opens a fresh serial session (never the polling
// connection), optionally writes one frame built by
// build and waits for its reply, and records the attempt to the
// command log regardless of outcome. build may be nil for commands
// whose entire effect is the node-select handshake itself; describe,
// when set, turns the decoded reply into the recorded message.
func oneOffMCUCommand(descr, name string, sessions map[string]config.McuSessionConfig, build func(algo mcuproto.ChecksumAlgorithm) ([]byte, error), describe func(pdu *mcuproto.PDU) string) {
	mcu, ok := sessions[name]
	if !ok {
		log.Fatalf("xgtcored: unknown mcu session %q", name)
	}
	serialCfg, err := buildSerialConfig(mcu)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := transport.Open(ctx, serialCfg)
	if err != nil {
		log.Fatalf("xgtcored: %s on %q: node-select failed: %v", descr, name, err)
	}
	defer conn.Close()

	status := "success"
	msg := fmt.Sprintf("%s on mcu session %q", descr, name)
	var frame, respRaw []byte
	if build != nil {
		frame, err = build(serialCfg.Algorithm)
		if err != nil {
			log.Fatal(err)
		}
		if err := conn.Write(ctx, frame); err != nil {
			log.Fatalf("xgtcored: %s on %q: write failed: %v", descr, name, err)
		}
		raw, err := conn.Read(ctx, serialCfg.ResponseTimeout)
		switch {
		case err != nil:
			status = "failure"
			log.Errorf("xgtcored: %s on %q: read failed: %v", descr, name, err)
		case len(raw) == 0:
			status = "failure"
			msg += ": no reply"
		default:
			respRaw = raw
			pdu, _, derr := mcuproto.Decode(raw, serialCfg.Algorithm)
			switch {
			case derr != nil:
				status = "failure"
				log.Errorf("xgtcored: %s on %q: malformed reply: %v", descr, name, derr)
			case pdu.Command == mcuproto.CmdNAK:
				status = "failure"
				msg += ": device NAK"
			case describe != nil:
				msg += ": " + describe(pdu)
			}
		}
	}

	if err := cmdlog.New().RecordCommand(ctx, "", descr, mcu.Port, frame, respRaw, status, msg); err != nil {
		log.Errorf("xgtcored: command log: %v", err)
	}
	log.Infof("xgtcored: %s", msg)
}

func runDOWrite(arg string, sessions map[string]config.McuSessionConfig) {
	parts := strings.Split(arg, ":")
	if len(parts) != 3 {
		log.Fatalf("xgtcored: -do-write wants session:channel:value")
	}
	channel, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		log.Fatal(err)
	}
	value, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		log.Fatal(err)
	}
	oneOffMCUCommand("do-write", parts[0], sessions, func(algo mcuproto.ChecksumAlgorithm) ([]byte, error) {
		return mcuproto.BuildDOWrite(uint8(channel), uint8(value), algo)
	}, func(pdu *mcuproto.PDU) string {
		echo, err := mcuproto.DecodeDOWriteEcho(pdu.Data)
		if err != nil {
			return "acknowledged without echo"
		}
		return fmt.Sprintf("DO%d=%d", echo.Channel, echo.Value)
	})
}

func runDOWriteAll(arg string, sessions map[string]config.McuSessionConfig) {
	parts := strings.Split(arg, ":")
	if len(parts) != 2 || len(parts[1]) != 8 {
		log.Fatalf("xgtcored: -do-write-all wants session:XXXXXXXX (8 binary digits)")
	}
	var values [8]uint8
	for i, ch := range parts[1] {
		switch ch {
		case '0':
		case '1':
			values[i] = 1
		default:
			log.Fatalf("xgtcored: -do-write-all digits must be 0 or 1")
		}
	}
	oneOffMCUCommand("do-write-all", parts[0], sessions, func(algo mcuproto.ChecksumAlgorithm) ([]byte, error) {
		return mcuproto.BuildDOWriteAll(values, algo)
	}, nil)
}

func runFirmwareVersion(arg string, sessions map[string]config.McuSessionConfig) {
	oneOffMCUCommand("firmware-version-read", arg, sessions, func(algo mcuproto.ChecksumAlgorithm) ([]byte, error) {
		return mcuproto.Encode(mcuproto.CmdFirmwareVersionReq, nil, algo)
	}, func(pdu *mcuproto.PDU) string {
		v, err := mcuproto.DecodeFirmwareVersion(pdu.Data)
		if err != nil {
			return "malformed version reply"
		}
		return fmt.Sprintf("version %d.%d.%d", v.Major, v.Minor, v.Patch)
	})
}

func runSerialSetup(arg string, sessions map[string]config.McuSessionConfig) {
	parts := strings.Split(arg, ":")
	if len(parts) != 6 {
		log.Fatalf("xgtcored: -serial-setup wants session:channel:baud:parity:stop:size")
	}
	fields := make([]uint8, 5)
	for i, p := range parts[1:] {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			log.Fatal(err)
		}
		fields[i] = uint8(n)
	}
	setup := mcuproto.SerialSetup{
		Channel:  fields[0],
		BaudCode: fields[1],
		Parity:   fields[2],
		StopBits: fields[3],
		ByteSize: fields[4],
	}
	oneOffMCUCommand("serial-setup", parts[0], sessions, func(algo mcuproto.ChecksumAlgorithm) ([]byte, error) {
		return mcuproto.BuildSerialSetup(setup, algo)
	}, nil)
}

func runSerialSetupRead(arg string, sessions map[string]config.McuSessionConfig) {
	parts := strings.Split(arg, ":")
	if len(parts) != 2 {
		log.Fatalf("xgtcored: -serial-setup-read wants session:channel")
	}
	channel, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		log.Fatal(err)
	}
	oneOffMCUCommand("serial-setup-read", parts[0], sessions, func(algo mcuproto.ChecksumAlgorithm) ([]byte, error) {
		return mcuproto.Encode(mcuproto.CmdSerialSetupReadReq, []byte{uint8(channel)}, algo)
	}, func(pdu *mcuproto.PDU) string {
		s, err := mcuproto.DecodeSerialSetup(pdu.Data)
		if err != nil {
			return "malformed setup reply"
		}
		return fmt.Sprintf("channel %d: baud_code=%d parity=%d stop_bits=%d byte_size=%d",
			s.Channel, s.BaudCode, s.Parity, s.StopBits, s.ByteSize)
	})
}

func runSerialWrite(arg string, sessions map[string]config.McuSessionConfig) {
	parts := strings.Split(arg, ":")
	if len(parts) != 3 {
		log.Fatalf("xgtcored: -serial-write wants session:channel:hex-payload")
	}
	channel, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		log.Fatal(err)
	}
	payload, err := hex.DecodeString(parts[2])
	if err != nil {
		log.Fatal(err)
	}
	oneOffMCUCommand("serial-write", parts[0], sessions, func(algo mcuproto.ChecksumAlgorithm) ([]byte, error) {
		return mcuproto.BuildSerialWrite(uint8(channel), payload, algo)
	}, nil)
}

func runDIThreshold(arg string, sessions map[string]config.McuSessionConfig) {
	parts := strings.Split(arg, ":")
	if len(parts) != 2 {
		log.Fatalf("xgtcored: -di-threshold wants session:level")
	}
	level, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		log.Fatal(err)
	}
	oneOffMCUCommand("di-threshold-write", parts[0], sessions, func(algo mcuproto.ChecksumAlgorithm) ([]byte, error) {
		return mcuproto.BuildDIThresholdWrite(uint8(level), algo)
	}, nil)
}

func runFirmwareUpdate(arg string, sessions map[string]config.McuSessionConfig) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		log.Fatalf("xgtcored: -firmware-update wants session:path-to-image")
	}
	mcu, ok := sessions[parts[0]]
	if !ok {
		log.Fatalf("xgtcored: unknown mcu session %q", parts[0])
	}
	serialCfg, err := buildSerialConfig(mcu)
	if err != nil {
		log.Fatal(err)
	}
	payload, err := os.ReadFile(parts[1])
	if err != nil {
		log.Fatal(err)
	}
	chunks := mcuproto.BuildFirmwareChunks(payload)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := transport.PushFirmware(ctx, serialCfg, chunks); err != nil {
		log.Fatalf("xgtcored: firmware update to %q failed: %v", parts[0], err)
	}
	log.Infof("xgtcored: firmware update to %q completed (%d chunks)", parts[0], len(chunks))
}

// runLSISWrite performs one control write against an LSIS client on a
// fresh connection, driving the ControlValue lifecycle the same way a
// real operator action would: pending -> sent -> acknowledged ->
// completed, or sent -> failed when the write returns an error.
func runLSISWrite(arg string, clients []schema.SocketClientConfig) {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) != 3 {
		log.Fatalf("xgtcored: -lsis-write wants client:variable:value")
	}
	clientID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		log.Fatal(err)
	}
	value, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		log.Fatal(err)
	}

	cfg, ok := findClient(clients, clientID)
	if !ok {
		log.Fatalf("xgtcored: unknown client %d", clientID)
	}
	group, v, ok := findVariable(cfg, parts[1])
	if !ok {
		log.Fatalf("xgtcored: client %d has no variable %q", clientID, parts[1])
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := poll.NewTCPClient(cfg, kvcache.New(), 5*time.Second, 5*time.Second, transaction.DefaultRetryPolicy)
	if err != nil {
		log.Fatalf("xgtcored: client %d: connect failed: %v", clientID, err)
	}
	defer client.Close()

	control := cmdlog.NewControlService()
	id, err := control.Create(ctx, clientID, v.ID, "", "")
	if err != nil {
		log.Fatal(err)
	}
	if err := control.Transition(ctx, id, schema.ControlPending, schema.ControlSent, "write issued"); err != nil {
		log.Fatal(err)
	}

	if err := client.WriteControl(ctx, group, v, value); err != nil {
		_ = control.Transition(ctx, id, schema.ControlSent, schema.ControlFailed, err.Error())
		log.Fatalf("xgtcored: write failed: %v", err)
	}
	if err := control.Transition(ctx, id, schema.ControlSent, schema.ControlAcknowledged, "ack received"); err != nil {
		log.Fatal(err)
	}
	if err := control.Transition(ctx, id, schema.ControlAcknowledged, schema.ControlCompleted, "write confirmed"); err != nil {
		log.Fatal(err)
	}
	log.Infof("xgtcored: wrote %v to client %d variable %q", value, clientID, v.Name)
}

func findClient(clients []schema.SocketClientConfig, id int64) (schema.SocketClientConfig, bool) {
	for _, c := range clients {
		if c.ID == id {
			return c, true
		}
	}
	return schema.SocketClientConfig{}, false
}

func findVariable(cfg schema.SocketClientConfig, name string) (*schema.MemoryGroup, *schema.Variable, bool) {
	for i := range cfg.MemoryGroups {
		g := &cfg.MemoryGroups[i]
		for _, v := range g.Variables {
			if v.Name == name {
				return g, v, true
			}
		}
	}
	return nil, nil, false
}
