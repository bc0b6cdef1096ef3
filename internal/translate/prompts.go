package translate

const segmentsPrompt = `Traduis les segments suivants d'arabe en français.
Retourne UNIQUEMENT un tableau JSON valide avec cette structure exacte (sans markdown, sans explication):
[{"start": 0.0, "end": 5.2, "text": "traduction française"}]

Segments à traduire:
%s`

const plainPrompt = `Traduis le texte suivant de l'arabe en français. Retourne UNIQUEMENT la traduction française, sans explication ni commentaire.

Texte arabe:
%s`

// articlePrompt asks for a faithful full translation; only headings may be added.
const articlePrompt = `Tu vas recevoir la transcription complète d'un contenu audio en arabe. Traduis-la intégralement en français, mot pour mot, sans rien omettre ni résumer.

La seule mise en forme autorisée :
- Un titre principal (# ...) qui reflète le sujet du contenu
- Des titres de sections (## ...) pour découper naturellement le contenu en parties cohérentes

Le texte sous chaque section doit être la traduction directe et fidèle de ce qui est dit, dans les propres mots de l'orateur. Ne reformule pas, ne commente pas, ne résume pas. Ne commence pas par une phrase d'introduction sur le contenu.

Transcription arabe complète :
%s`
