package modal

// The in-page agent. It is registered as an init script so it survives
// navigations, and talks back to the host through the exposed bridge
// functions (wsAction, wsTrainSelect) instead of console messages.

// Bridge function names exposed on the page's window object.
const (
	bridgeAction      = "wsAction"
	bridgeTrainSelect = "wsTrainSelect"
)

const agentJS = `() => {
	if (window.__wsAgent) return;
	const agent = {
		mutated: false,
		prevSigs: new Set(),
		training: false,
	};
	window.__wsAgent = agent;

	const observer = new MutationObserver((records) => {
		for (const r of records) {
			if (r.type === 'childList' && r.addedNodes.length > 0) { agent.mutated = true; return; }
			if (r.type === 'attributes') { agent.mutated = true; return; }
		}
	});
	const observe = () => {
		if (document.documentElement) {
			observer.observe(document.documentElement, {
				childList: true, subtree: true,
				attributes: true, attributeFilter: ['style', 'class'],
			});
		}
	};
	if (document.readyState === 'loading') {
		document.addEventListener('DOMContentLoaded', observe);
	} else {
		observe();
	}

	const selectorFor = (el) => {
		if (el.id) return '#' + el.id;
		const cls = (typeof el.className === 'string') ? el.className.trim().split(/\s+/)[0] : '';
		const tag = el.tagName.toLowerCase();
		return cls ? tag + '.' + cls : tag;
	};

	const snapshot = (el, vw, vh) => {
		const style = getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		const cls = (typeof el.className === 'string')
			? el.className.trim().split(/\s+/).filter(Boolean) : [];
		const z = parseInt(style.zIndex, 10);
		const sig = el.tagName + '#' + (el.id || '') + '.' + cls.join('.') +
			'@' + Math.round(rect.left) + ',' + Math.round(rect.top) +
			',' + Math.round(rect.width) + ',' + Math.round(rect.height);
		return {
			tag: el.tagName.toLowerCase(),
			id: el.id || '',
			classes: cls,
			selector: selectorFor(el),
			position: style.position,
			z_index: isNaN(z) ? 0 : z,
			x: rect.left, y: rect.top, width: rect.width, height: rect.height,
			viewport_width: vw, viewport_height: vh,
			text: (el.innerText || '').slice(0, 200),
			has_input: el.querySelector('input') !== null,
			has_button: el.querySelector('button') !== null,
			has_form: el.querySelector('form') !== null || el.tagName === 'FORM',
			visible: style.display !== 'none' && style.visibility !== 'hidden' &&
				rect.width > 0 && rect.height > 0,
			signature: sig,
			new: !agent.prevSigs.has(sig),
		};
	};

	window.__wsConsumeMutated = () => {
		const m = agent.mutated;
		agent.mutated = false;
		return m;
	};

	window.__wsCollectSnapshots = () => {
		const vw = window.innerWidth, vh = window.innerHeight;
		const out = [];
		const nextSigs = new Set();
		const all = document.body ? document.body.querySelectorAll('div,section,aside,form,dialog') : [];
		let n = 0;
		for (const el of all) {
			if (n++ > 1500) break;
			const s = snapshot(el, vw, vh);
			nextSigs.add(s.signature);
			if (!s.visible) continue;
			out.push(s);
		}
		agent.prevSigs = nextSigs;
		return out;
	};

	window.__wsElementState = (sel) => {
		const el = document.querySelector(sel);
		if (!el) return null;
		const rect = el.getBoundingClientRect();
		const loading = el.querySelector('.loading, .spinner, [disabled], [aria-busy="true"]') !== null;
		return {
			x: rect.left, y: rect.top, width: rect.width, height: rect.height,
			content_length: el.innerHTML.length,
			text: (el.innerText || '').slice(0, 500),
			loading: loading,
		};
	};

	// Rough in-page mirror of the host heuristic, used only to color the
	// training outline.
	const quickScore = (el) => {
		const style = getComputedStyle(el);
		let s = 0;
		if (style.position === 'fixed') s += 30;
		else if (style.position === 'absolute') s += 20;
		const z = parseInt(style.zIndex, 10) || 0;
		if (z > 1000) s += 25; else if (z > 100) s += 15;
		const cls = (typeof el.className === 'string') ? el.className.toLowerCase() : '';
		if (/modal|dialog|popup/.test(cls)) s += 30;
		if (el.querySelector('input,button,form')) s += 15;
		return s;
	};

	let hoverHandler = null, clickHandler = null, lastOutlined = null;

	window.__wsEnableTraining = () => {
		if (agent.training) return;
		agent.training = true;

		const badge = document.createElement('div');
		badge.id = '__ws_training_badge';
		badge.textContent = 'TRAINING MODE';
		badge.style.cssText = 'position:fixed;bottom:12px;right:12px;z-index:2147483647;' +
			'background:#c2410c;color:#fff;font:bold 11px sans-serif;padding:5px 9px;border-radius:4px;';
		document.documentElement.appendChild(badge);

		hoverHandler = (e) => {
			if (lastOutlined) lastOutlined.style.outline = '';
			const el = e.target;
			const s = quickScore(el);
			const color = s >= 50 ? '#16a34a' : s >= 25 ? '#eab308' : '#6b7280';
			el.style.outline = '2px solid ' + color;
			lastOutlined = el;
		};
		clickHandler = (e) => {
			e.preventDefault();
			e.stopPropagation();
			const el = e.target;
			const vw = window.innerWidth, vh = window.innerHeight;
			const ancestors = [];
			let p = el.parentElement;
			for (let i = 0; i < 3 && p; i++) {
				ancestors.push({
					tag: p.tagName.toLowerCase(),
					id: p.id || '',
					classes: (typeof p.className === 'string')
						? p.className.trim().split(/\s+/).filter(Boolean) : [],
				});
				p = p.parentElement;
			}
			const siblings = el.parentElement
				? Array.from(el.parentElement.children).map(c => c.tagName.toLowerCase()) : [];
			window.` + bridgeTrainSelect + `(JSON.stringify({
				page_url: location.href,
				snapshot: snapshot(el, vw, vh),
				ancestors: ancestors,
				siblings: siblings,
				quick_score: quickScore(el),
			}));
		};
		document.addEventListener('mouseover', hoverHandler, true);
		document.addEventListener('click', clickHandler, true);
	};

	window.__wsDisableTraining = () => {
		agent.training = false;
		const badge = document.getElementById('__ws_training_badge');
		if (badge) badge.remove();
		if (lastOutlined) { lastOutlined.style.outline = ''; lastOutlined = null; }
		if (hoverHandler) document.removeEventListener('mouseover', hoverHandler, true);
		if (clickHandler) document.removeEventListener('click', clickHandler, true);
		hoverHandler = clickHandler = null;
	};

	// Record-mode listeners relay user interactions to the host.
	document.addEventListener('click', (e) => {
		if (agent.training) return;
		const el = e.target;
		window.` + bridgeAction + `(JSON.stringify({
			type: 'click',
			selector: selectorFor(el),
			text: (el.innerText || '').slice(0, 80),
			x: e.clientX, y: e.clientY,
			url: location.href,
		}));
	}, true);

	document.addEventListener('keydown', (e) => {
		if (agent.training) return;
		if (e.key !== 'Enter' && e.key !== 'Tab') return;
		window.` + bridgeAction + `(JSON.stringify({
			type: 'key',
			text: e.key,
			url: location.href,
		}));
	}, true);
}`
