package testsupport

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"

	"dinehall/internal/browser"
	"dinehall/internal/config"
	"dinehall/internal/services"
)

// FakeItem is one menu row on a FakeSite.
type FakeItem struct {
	Name        string
	Description string
	Portion     string
	Icons       []string
	Nutrients   [][2]string
	Ingredients string
	// NoDetail makes the item trigger a no-op so the nutrition panel never
	// appears.
	NoDetail bool
	// LatePanel opens the panel, but only after the first wait for it has
	// timed out.
	LatePanel bool
	// UnreadablePanel opens the panel but fails every read of its markup.
	UnreadablePanel bool
}

// FakeStation groups items under a station header.
type FakeStation struct {
	Name  string
	Items []FakeItem
}

// FakeMeal is one meal tab of a hall.
type FakeMeal struct {
	Name     string
	Stations []FakeStation
}

// FakeHall is one entry of the dining hall dropdown.
type FakeHall struct {
	Name  string
	Meals []FakeMeal
}

// FakeSite simulates the dining menu web app behind browser.Session. It
// renders markup matching config.DefaultSelectors, so configs passed to code
// under test must keep the default selectors.
//
// Faults are queued per operation key and consumed one per call:
//
//	navigate
//	hall_toggle
//	select_hall:<hall>
//	meal_tabs:<hall>
//	select_meal:<hall>/<meal>
//	menu:<hall>/<meal>
//	item:<item name>
//
// A nil entry lets that call through, so faults can target a later call
// (for example the orchestrator's selection after discovery's). A queued
// error wrapping services.ErrCrash also kills the session.
type FakeSite struct {
	mu         sync.Mutex
	sel        config.Selectors
	halls      []FakeHall
	faults     map[string][]error
	launchErrs []error
	sessions   []*FakeSession

	Launches    int
	Closes      int
	Screenshots int
	Jitters     int
	Navigations int
}

// NewFakeSite builds a site serving halls.
func NewFakeSite(halls ...FakeHall) *FakeSite {
	return &FakeSite{
		sel:    config.DefaultSelectors(),
		halls:  halls,
		faults: make(map[string][]error),
	}
}

// Fail queues errs for the operation key.
func (s *FakeSite) Fail(key string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[key] = append(s.faults[key], errs...)
}

// FailLaunch queues errs returned by successive Launch calls; nil entries
// launch normally.
func (s *FakeSite) FailLaunch(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launchErrs = append(s.launchErrs, errs...)
}

// Launch implements browser.Launcher.
func (s *FakeSite) Launch(_ context.Context, _ browser.LaunchOptions) (browser.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Launches++
	if len(s.launchErrs) > 0 {
		err := s.launchErrs[0]
		s.launchErrs = s.launchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.newSessionLocked(), nil
}

// NewSession returns a live session without counting a launch.
func (s *FakeSite) NewSession() *FakeSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newSessionLocked()
}

func (s *FakeSite) newSessionLocked() *FakeSession {
	sess := &FakeSession{site: s, hall: -1, meal: -1}
	s.sessions = append(s.sessions, sess)
	return sess
}

// Sessions returns every session handed out so far.
func (s *FakeSite) Sessions() []*FakeSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FakeSession(nil), s.sessions...)
}

// Counts returns a snapshot of the activity counters.
func (s *FakeSite) Counts() (launches, closes, screenshots int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Launches, s.Closes, s.Screenshots
}

func (s *FakeSite) takeFault(key string) error {
	queue := s.faults[key]
	if len(queue) == 0 {
		return nil
	}
	s.faults[key] = queue[1:]
	return queue[0]
}

// CrashError builds an error the browser package classifies as a crash.
func CrashError(op string) error {
	return services.Wrap(services.ErrCrash, "fake", op, "", errors.New("chrome not reachable"))
}

// TimeoutError builds an error the browser package classifies as transient.
func TimeoutError(op, what string) error {
	return services.Wrap(services.ErrTimeout, "fake", op, what, context.DeadlineExceeded)
}

// FakeSession is one simulated browser tab.
type FakeSession struct {
	site     *FakeSite
	dead     bool
	closed   bool
	menuOpen bool
	hall     int
	meal     int
	panel    *FakeItem
	late     bool

	Opened []string
}

// Kill marks the session as crashed.
func (f *FakeSession) Kill() {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	f.dead = true
}

// Closed reports whether Close was called.
func (f *FakeSession) Closed() bool {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	return f.closed
}

func (f *FakeSession) check(op string) error {
	if f.closed || f.dead {
		return CrashError(op)
	}
	return nil
}

// fault consumes a queued fault for key, killing the session if it is a crash.
func (f *FakeSession) fault(key string) error {
	err := f.site.takeFault(key)
	if err != nil && errors.Is(err, services.ErrCrash) {
		f.dead = true
	}
	return err
}

func (f *FakeSession) currentHall() *FakeHall {
	if f.hall < 0 || f.hall >= len(f.site.halls) {
		return nil
	}
	return &f.site.halls[f.hall]
}

func (f *FakeSession) currentMeal() *FakeMeal {
	hall := f.currentHall()
	if hall == nil || f.meal < 0 || f.meal >= len(hall.Meals) {
		return nil
	}
	return &hall.Meals[f.meal]
}

func (f *FakeSession) mealKey() string {
	hall := f.currentHall()
	meal := f.currentMeal()
	if hall == nil || meal == nil {
		return ""
	}
	return hall.Name + "/" + meal.Name
}

func (f *FakeSession) Navigate(_ context.Context, _ string) error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	if err := f.check("navigate"); err != nil {
		return err
	}
	if err := f.fault("navigate"); err != nil {
		return err
	}
	f.site.Navigations++
	f.menuOpen = false
	f.hall, f.meal, f.panel = -1, -1, nil
	return nil
}

func (f *FakeSession) Click(_ context.Context, q browser.Query) error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	if err := f.check("click"); err != nil {
		return err
	}
	sel := f.site.sel
	switch {
	case q.XPath:
		return f.openItemLocked(q, 0)
	case q.Selector == sel.HallToggle:
		if err := f.fault("hall_toggle"); err != nil {
			return err
		}
		f.menuOpen = true
		return nil
	case q.Selector == sel.DetailClose:
		if f.panel == nil {
			return TimeoutError("click", q.String())
		}
		f.panel, f.late = nil, false
		return nil
	default:
		return TimeoutError("click", q.String())
	}
}

// openItemLocked clicks the nth item whose quoted name appears in the trigger
// XPath. While a panel is open it covers every trigger.
func (f *FakeSession) openItemLocked(q browser.Query, nth int) error {
	meal := f.currentMeal()
	if meal == nil {
		return TimeoutError("click", q.String())
	}
	if f.panel != nil {
		return TimeoutError("click", "trigger covered by open panel")
	}
	seen := 0
	for si := range meal.Stations {
		for ii := range meal.Stations[si].Items {
			item := &meal.Stations[si].Items[ii]
			if !strings.Contains(q.Selector, "'"+item.Name+"'") && !strings.Contains(q.Selector, `"`+item.Name+`"`) {
				continue
			}
			if seen < nth {
				seen++
				continue
			}
			if err := f.fault("item:" + item.Name); err != nil {
				return err
			}
			f.Opened = append(f.Opened, item.Name)
			if !item.NoDetail {
				f.panel, f.late = item, item.LatePanel
			}
			return nil
		}
	}
	return TimeoutError("click", q.String())
}

func (f *FakeSession) ClickNth(_ context.Context, q browser.Query, index int) error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	if err := f.check("click_nth"); err != nil {
		return err
	}
	if q.XPath {
		return f.openItemLocked(q, index)
	}
	sel := f.site.sel
	switch q.Selector {
	case sel.HallOptions:
		if !f.menuOpen {
			return TimeoutError("click_nth", q.String())
		}
		if index < 0 || index >= len(f.site.halls) {
			return services.Wrap(services.ErrNotFound, "fake", "click_nth", q.String(), nil)
		}
		if err := f.fault("select_hall:" + f.site.halls[index].Name); err != nil {
			return err
		}
		f.hall, f.meal, f.menuOpen = index, -1, false
		return nil
	case sel.MealTabs:
		hall := f.currentHall()
		if hall == nil {
			return TimeoutError("click_nth", q.String())
		}
		if index < 0 || index >= len(hall.Meals) {
			return services.Wrap(services.ErrNotFound, "fake", "click_nth", q.String(), nil)
		}
		if err := f.fault("select_meal:" + hall.Name + "/" + hall.Meals[index].Name); err != nil {
			return err
		}
		f.meal, f.panel = index, nil
		return nil
	default:
		return TimeoutError("click_nth", q.String())
	}
}

func (f *FakeSession) WaitVisible(_ context.Context, q browser.Query) error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	if err := f.check("wait_visible"); err != nil {
		return err
	}
	sel := f.site.sel
	switch q.Selector {
	case sel.HallOptions:
		if f.menuOpen {
			return nil
		}
	case sel.MealTabs:
		hall := f.currentHall()
		if hall == nil {
			break
		}
		if err := f.fault("meal_tabs:" + hall.Name); err != nil {
			return err
		}
		if len(hall.Meals) > 0 {
			return nil
		}
	case sel.MenuContainer:
		if f.currentMeal() != nil {
			return nil
		}
	case sel.DetailPanel:
		if f.panel != nil && f.late {
			f.late = false
			return TimeoutError("wait_visible", q.String())
		}
		if f.panel != nil {
			return nil
		}
	default:
		return nil
	}
	return TimeoutError("wait_visible", q.String())
}

func (f *FakeSession) WaitNotVisible(_ context.Context, q browser.Query) error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	if err := f.check("wait_not_visible"); err != nil {
		return err
	}
	if q.Selector == f.site.sel.DetailPanel && f.panel != nil {
		return TimeoutError("wait_not_visible", q.String())
	}
	return nil
}

func (f *FakeSession) Texts(_ context.Context, q browser.Query) ([]string, error) {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	if err := f.check("texts"); err != nil {
		return nil, err
	}
	var out []string
	switch q.Selector {
	case f.site.sel.HallOptions:
		if f.menuOpen {
			for _, hall := range f.site.halls {
				out = append(out, hall.Name)
			}
		}
	case f.site.sel.MealTabs:
		if hall := f.currentHall(); hall != nil {
			for _, meal := range hall.Meals {
				out = append(out, meal.Name)
			}
		}
	}
	return out, nil
}

func (f *FakeSession) OuterHTML(_ context.Context, q browser.Query) (string, error) {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	if err := f.check("outer_html"); err != nil {
		return "", err
	}
	switch q.Selector {
	case f.site.sel.MenuContainer:
		meal := f.currentMeal()
		if meal == nil {
			return "", TimeoutError("outer_html", q.String())
		}
		if err := f.fault("menu:" + f.mealKey()); err != nil {
			return "", err
		}
		return MenuHTML(meal.Stations), nil
	case f.site.sel.DetailPanel:
		if f.panel == nil || f.panel.UnreadablePanel {
			return "", TimeoutError("outer_html", q.String())
		}
		return DetailHTML(*f.panel), nil
	default:
		return "", TimeoutError("outer_html", q.String())
	}
}

func (f *FakeSession) Screenshot(_ context.Context) ([]byte, error) {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	if err := f.check("screenshot"); err != nil {
		return nil, err
	}
	f.site.Screenshots++
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

func (f *FakeSession) Jitter(_ context.Context) error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	if err := f.check("jitter"); err != nil {
		return err
	}
	f.site.Jitters++
	return nil
}

func (f *FakeSession) Alive(_ context.Context) bool {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	return !f.dead && !f.closed
}

func (f *FakeSession) Close() error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.site.Closes++
	}
	return nil
}

// MenuHTML renders stations as the menu table markup the site serves.
func MenuHTML(stations []FakeStation) string {
	var b strings.Builder
	b.WriteString(`<table id="menu-items"><tbody>`)
	for _, station := range stations {
		if station.Name != "" {
			fmt.Fprintf(&b, `<tr class="station-header"><td colspan="3">%s</td></tr>`, html.EscapeString(station.Name))
		}
		for _, item := range station.Items {
			b.WriteString(`<tr class="menu-item"><td>`)
			fmt.Fprintf(&b, `<a href="#" class="item-name">%s</a>`, html.EscapeString(item.Name))
			if item.Description != "" {
				fmt.Fprintf(&b, `<div class="item-description">%s</div>`, html.EscapeString(item.Description))
			}
			fmt.Fprintf(&b, `</td><td class="item-portion">%s</td><td>`, html.EscapeString(item.Portion))
			for _, icon := range item.Icons {
				fmt.Fprintf(&b, `<img class="dietary-icon" src="/icons/x.png" alt="%s">`, html.EscapeString(icon))
			}
			b.WriteString(`</td></tr>`)
		}
	}
	b.WriteString(`</tbody></table>`)
	return b.String()
}

// DetailHTML renders the nutrition panel for item.
func DetailHTML(item FakeItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="nutrition-panel"><h3>%s</h3><table>`, html.EscapeString(item.Name))
	for _, row := range item.Nutrients {
		fmt.Fprintf(&b, `<tr class="nutrient-row"><td class="nutrient-label">%s</td><td class="nutrient-value">%s</td></tr>`,
			html.EscapeString(row[0]), html.EscapeString(row[1]))
	}
	b.WriteString(`</table>`)
	if item.Ingredients != "" {
		fmt.Fprintf(&b, `<p class="ingredients">%s</p>`, html.EscapeString(item.Ingredients))
	}
	b.WriteString(`<button class="close-button">Close</button></div>`)
	return b.String()
}
