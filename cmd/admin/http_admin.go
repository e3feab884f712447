package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"drawbridge.ai/internal/protocol"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/state"
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/snapshot"
	req, _ := http.NewRequest(http.MethodPost, u, nil)
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

// inputCmd posts one INPUT message to the server's admin endpoint.
func inputCmd(args []string) {
	fs := flag.NewFlagSet("input", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	kind := fs.String("kind", "", "input kind (ADD_MECHANISM, REMOVE_MECHANISM, TOGGLE_SWITCH, SET_BLOCK, SET_RENDER, SET_SLOT, TAKE_SLOT, CONFIG)")
	pos := fs.String("pos", "", "x,y,z")
	facing := fs.String("facing", "", "facing for ADD_MECHANISM")
	block := fs.String("block", "", "block id for SET_BLOCK, SET_RENDER or SET_SLOT")
	meta := fs.Int("meta", 0, "block meta")
	slot := fs.Int("slot", 0, "buffer slot for SET_SLOT or TAKE_SLOT")
	count := fs.Int("count", 0, "units to take for TAKE_SLOT (0 takes the whole slot)")
	speed := fs.Int("speed", 0, "speed for CONFIG")
	needsRS := fs.Bool("needsrs", true, "requiresRedstone for CONFIG")
	_ = fs.Parse(args)

	p, err := parseVec3(*pos)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -pos:", err)
		os.Exit(2)
	}
	msg := buildInput(strings.ToUpper(strings.TrimSpace(*kind)), p, *facing, *block, *meta, *slot, *count, *speed, *needsRS)
	body, _ := json.Marshal(msg)
	if err := protocol.Validate(protocol.TypeInput, body); err != nil {
		fmt.Fprintln(os.Stderr, "invalid input:", err)
		os.Exit(2)
	}

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/input"
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Post(u, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func buildInput(kind string, pos [3]int, facing, block string, meta, slot, count, speed int, needsRS bool) protocol.InputMsg {
	in := protocol.Input{Kind: kind, Pos: pos, Source: "admin"}
	switch kind {
	case protocol.InputAddMechanism:
		in.Facing = strings.ToUpper(facing)
	case protocol.InputSetBlock:
		in.Block, in.Meta = block, meta
	case protocol.InputSetRender:
		in.Item = protocol.ItemStack{Block: block, Meta: meta, Count: 1}
	case protocol.InputSetSlot:
		in.Slot = slot
		if block != "" {
			in.Item = protocol.ItemStack{Block: block, Meta: meta, Count: 1}
		}
	case protocol.InputTakeSlot:
		in.Slot, in.Count = slot, count
	case protocol.InputConfig:
		in.Speed, in.NeedsRS = speed, needsRS
	}
	return protocol.InputMsg{Type: protocol.TypeInput, ProtocolVersion: protocol.Version, Input: in}
}
