package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"
)

var (
	version   = "dev"
	commitSHA = "unknown"
)

const (
	readyTimeout  = 30 * time.Second
	readyInterval = 500 * time.Millisecond
	stopGrace     = 3 * time.Second
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("[launcher] ")

	var (
		triggerBin = flag.String("trigger", "./trigger", "path to the trigger service binary")
		sinkDir    = flag.String("sink", "./im-service", "directory of the node notification sink")
		panelURL   = flag.String("panel", "http://localhost:8001/", "control panel URL to open once ready")
		healthURL  = flag.String("health", "http://localhost:8001/api/health", "readiness probe URL")
		noBrowser  = flag.Bool("no-browser", false, "do not open the control panel in a browser")
	)
	flag.Parse()

	log.Printf("starting launcher version=%s commit=%s", version, commitSHA)

	trigger, err := startProcess(*triggerBin)
	if err != nil {
		log.Fatalf("trigger: %v", err)
	}
	defer stopProcess("trigger", trigger)

	sink, err := startSink(*sinkDir)
	if err != nil {
		stopProcess("trigger", trigger)
		log.Fatalf("sink: %v", err)
	}
	defer stopProcess("sink", sink)

	if err := waitReady(*healthURL, readyTimeout); err != nil {
		log.Printf("readiness: %v", err)
	} else {
		log.Printf("trigger service is ready")
		if !*noBrowser {
			if err := openBrowser(*panelURL); err != nil {
				log.Printf("browser: %v", err)
			}
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Printf("shutting down")
}

func startProcess(path string) (*exec.Cmd, error) {
	cmd := exec.Command(path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}
	log.Printf("started %s pid=%d", path, cmd.Process.Pid)
	return cmd, nil
}

func startSink(dir string) (*exec.Cmd, error) {
	node, err := exec.LookPath("node")
	if err != nil {
		return nil, fmt.Errorf("node runtime not found: %w", err)
	}
	cmd := exec.Command(node, "server.js")
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start sink in %s: %w", dir, err)
	}
	log.Printf("started sink pid=%d", cmd.Process.Pid)
	return cmd, nil
}

// stopProcess asks the child to terminate and kills it if it has not
// exited within the grace period.
func stopProcess(name string, cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
		log.Printf("%s exited", name)
	case <-time.After(stopGrace):
		log.Printf("%s did not exit within %s, killing", name, stopGrace)
		cmd.Process.Kill()
		<-done
	}
}

// waitReady polls the health endpoint until it answers 200 or the
// timeout elapses.
func waitReady(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: readyInterval}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(readyInterval)
	}
	return fmt.Errorf("%s not ready after %s", url, timeout)
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
