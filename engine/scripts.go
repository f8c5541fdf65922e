package engine

// Script is a named function evaluated in the page context. The name lets
// engines without a JavaScript runtime provide the same contract natively.
type Script struct {
	Name string
	JS   string
}

// Script names.
const (
	ScriptInlineStylesheets = "inlineStylesheets"
	ScriptStripScripts      = "stripScripts"
	ScriptSEOSignals        = "seoSignals"
	ScriptStampCapture      = "stampCapture"
	ScriptNavigationStatus  = "navigationStatus"
)

// Capture marker meta names.
const (
	MarkerStatusName    = "capture-status"
	MarkerStatusValue   = "captured"
	MarkerTimestampName = "capture-timestamp"
)

// InlineStylesheets fetches every stylesheet link from inside the page and
// replaces each link in place with a <style> holding the fetched CSS. All
// fetches run concurrently; a failed fetch leaves its link untouched.
//
// Result: {"total": n, "inlined": n, "failed": n}.
var InlineStylesheets = Script{
	Name: ScriptInlineStylesheets,
	JS: `async () => {
	const links = Array.from(document.querySelectorAll('link[rel~="stylesheet" i]'));
	let inlined = 0;
	let failed = 0;
	await Promise.all(links.map(async (link) => {
		try {
			const res = await fetch(link.href);
			if (!res.ok) throw new Error('HTTP ' + res.status);
			const css = await res.text();
			const style = document.createElement('style');
			style.setAttribute('data-inlined-from', link.getAttribute('href') || 'unknown');
			const media = link.getAttribute('media');
			if (media) style.setAttribute('media', media);
			style.textContent = css;
			link.replaceWith(style);
			inlined++;
		} catch (e) {
			failed++;
		}
	}));
	return { total: links.length, inlined, failed };
}`,
}

// StripScripts removes ES-module scripts and scripts whose src contains the
// asset pattern argument. Result: the number removed.
var StripScripts = Script{
	Name: ScriptStripScripts,
	JS: `(assetPattern) => {
	const scripts = Array.from(document.querySelectorAll('script')).filter((s) => {
		const type = (s.getAttribute('type') || '').trim().toLowerCase();
		if (type === 'module') return true;
		const src = s.getAttribute('src');
		return !!assetPattern && src !== null && src.includes(assetPattern);
	});
	scripts.forEach((s) => s.remove());
	return scripts.length;
}`,
}

// SEOSignals reads the ten SEO signals. The argument bounds the <h1> text
// length in characters. Absent signals are null.
var SEOSignals = Script{
	Name: ScriptSEOSignals,
	JS: `(h1Max) => {
	const text = (v) => {
		if (v === null || v === undefined) return null;
		const t = String(v).trim();
		return t === '' ? null : t;
	};
	const get = (sel) => {
		const el = document.querySelector(sel);
		return el ? text(el.getAttribute('content') || el.textContent) : null;
	};
	const canonical = document.querySelector('link[rel="canonical"]');
	const h1 = document.querySelector('h1');
	return {
		title: text(document.title),
		description: get('meta[name="description"]'),
		canonical: canonical ? text(canonical.getAttribute('href')) : null,
		ogTitle: get('meta[property="og:title"]'),
		ogDescription: get('meta[property="og:description"]'),
		ogImage: get('meta[property="og:image"]'),
		ogUrl: get('meta[property="og:url"]'),
		twitterCard: get('meta[name="twitter:card"]'),
		jsonLd: document.querySelector('script[type="application/ld+json"]') ? 'present' : null,
		h1: h1 ? text(Array.from((h1.textContent || '').trim()).slice(0, h1Max).join('')) : null,
	};
}`,
}

// StampCapture writes the capture marker metas into <head>, reusing
// existing ones. The argument is the ISO-8601 timestamp.
var StampCapture = Script{
	Name: ScriptStampCapture,
	JS: `(timestamp) => {
	let head = document.head;
	if (!head) {
		head = document.createElement('head');
		document.documentElement.insertBefore(head, document.documentElement.firstChild);
	}
	const stamp = (name, content) => {
		let meta = head.querySelector('meta[name="' + name + '"]');
		if (!meta) {
			meta = document.createElement('meta');
			meta.setAttribute('name', name);
			head.appendChild(meta);
		}
		meta.setAttribute('content', content);
	};
	stamp('` + MarkerStatusName + `', '` + MarkerStatusValue + `');
	stamp('` + MarkerTimestampName + `', timestamp);
	return true;
}`,
}

// NavigationStatus reports the HTTP status of the main document, 0 when
// unknown.
var NavigationStatus = Script{
	Name: ScriptNavigationStatus,
	JS: `() => {
	try {
		const entries = performance.getEntriesByType('navigation');
		if (entries.length > 0) return entries[0].responseStatus || 0;
	} catch (e) {}
	return 0;
}`,
}

// serializeJS returns the doctype plus the outer HTML of the document.
const serializeJS = `() => {
	const dt = document.doctype ? new XMLSerializer().serializeToString(document.doctype) : '';
	return dt + document.documentElement.outerHTML;
}`
